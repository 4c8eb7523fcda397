package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wakeel/internal/config"
	"wakeel/internal/models"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.CallSession{},
		&models.Turn{},
		&models.CallSummary{},
		&models.MessageRecord{},
		&models.UserPolicy{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_call_sessions_user_start ON call_sessions(user_id, start_time)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_turns_session_created ON turns(session_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_message_records_user_contact ON message_records(user_id, contact_phone)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_call_summaries_user ON call_summaries(user_id)")

	log.Println("Additional indexes created successfully!")

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	var policy models.UserPolicy
	if err := db.Where("user_id = ?", "demo-user").First(&policy).Error; err != nil {
		db.Create(models.DefaultUserPolicy("demo-user"))
		log.Println("Created default policy for demo-user")
	}
}
