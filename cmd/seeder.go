package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample merchants and wallets for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"wallet_transactions", "wallet_balances", "transactions", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		merchants := []struct {
			Email  string
			Name   string
			PixKey string
		}{
			{"ana@lojinha.com.br", "Ana Souza", "ana@lojinha.com.br"},
			{"bruno@padaria.com.br", "Bruno Lima", "+5511998765432"},
		}

		for _, m := range merchants {
			var exists int
			row := db.Raw("SELECT 1 FROM users WHERE email = ?", m.Email).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("user already exists:", m.Email)
				continue
			}

			if err := db.Exec(
				"INSERT INTO users (email, name, password_hash, pix_key, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
				m.Email, m.Name, string(hash), m.PixKey,
			).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", m.Email, err)
			}

			var userID int64
			row = db.Raw("SELECT id FROM users WHERE email = ?", m.Email).Row()
			if err := row.Scan(&userID); err != nil {
				log.Fatalf("failed to read back user %s: %v", m.Email, err)
			}

			if err := db.Exec(
				"INSERT INTO wallet_balances (user_id, balance, updated_at) VALUES (?, 0, now())",
				userID,
			).Error; err != nil {
				log.Fatalf("failed to create wallet for %s: %v", m.Email, err)
			}

			fmt.Println("Seeded merchant:", m.Email)
		}

		fmt.Println("Seeding complete. Login with any seeded email and password:", password)
	},
}
