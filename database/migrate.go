// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"learnledger/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserAchievement{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("Migrations completed")
}

func createIndexes() {
	db := GetDB()

	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_total_xp ON users(total_xp DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_user_achievements_pair ON user_achievements(user_id, achievement_id)")
}
