package Models

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "database.db"
	}

	connection, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	DB = connection

	// 1. Base entities with no dependencies
	DB.AutoMigrate(
		&Sector{},
		&User{},
		&RequestLog{},
	)

	// 2. Template authoring entities
	DB.AutoMigrate(
		&ChecklistTemplate{},
		&ChecklistTask{},
		&TaskMedia{},
	)

	// 3. Scheduling graph, depends on templates and users
	DB.AutoMigrate(
		&Assignment{},
		&Execution{},
		&TaskExecution{},
		&Evidence{},
	)

	// 4. Uniqueness constraints the materializer depends on
	if err := SetupExecutionIndexes(DB); err != nil {
		log.Printf("Error creating execution indexes: %v", err)
	}

	seedSuperAdmin()
}

// seedSuperAdmin creates the initial superadmin account on an empty user
// table so a fresh deployment can log in.
func seedSuperAdmin() {
	var count int64
	DB.Model(&User{}).Count(&count)
	if count > 0 {
		return
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("No users and no ADMIN_EMAIL/ADMIN_PASSWORD set, skipping seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing seed password: %v", err)
		return
	}

	admin := User{
		Name:       "Administrator",
		Email:      email,
		Password:   hash,
		Permission: PermissionSuperAdmin,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Error seeding superadmin: %v", err)
	} else {
		log.Println("Seeded superadmin account:", email)
	}
}
