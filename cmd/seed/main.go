// Command seed loads an initial user roster into the application
// database from a YAML file:
//
//	users:
//	  - email: head@example.edu
//	    name: Head of School
//	    role: manager
//	    password: change-me
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/campusdesk-dev/campusdesk/internal/auth"
	"github.com/campusdesk-dev/campusdesk/internal/config"
	"github.com/campusdesk-dev/campusdesk/internal/models"
)

type rosterFile struct {
	Users []rosterUser `yaml:"users"`
}

type rosterUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	Inactive bool   `yaml:"inactive"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <roster.yaml>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("failed to read roster file: %v", err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		log.Fatalf("failed to parse roster file: %v", err)
	}
	if len(roster.Users) == 0 {
		log.Fatal("roster file contains no users")
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	created := 0
	for _, entry := range roster.Users {
		if entry.Email == "" || entry.Password == "" {
			log.Fatalf("roster entry %q is missing email or password", entry.Name)
		}

		role := entry.Role
		if role == "" {
			role = models.RoleStaff
		}

		passwordHash, err := auth.HashPassword(entry.Password)
		if err != nil {
			log.Fatalf("failed to hash password for %s: %v", entry.Email, err)
		}

		user := models.User{
			Email:        entry.Email,
			PasswordHash: passwordHash,
			Name:         entry.Name,
			Role:         role,
			IsActive:     !entry.Inactive,
		}

		// Skip users that already exist so the tool stays re-runnable
		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", entry.Email).Count(&count).Error; err != nil {
			log.Fatalf("failed to check for existing user %s: %v", entry.Email, err)
		}
		if count > 0 {
			fmt.Printf("skip %s (already exists)\n", entry.Email)
			continue
		}

		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("failed to create user %s: %v", entry.Email, err)
		}
		fmt.Printf("created %s (%s)\n", user.Email, user.Role)
		created++
	}

	fmt.Printf("done: %d user(s) created\n", created)
}
