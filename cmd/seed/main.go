package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/identity"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	secret := os.Getenv("JWT_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Bootstrap(context.Background(), pool, ""); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedUsers(context.Background(), pool, identity.RoleDoctor, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patients, err := seedUsers(context.Background(), pool, identity.RolePatient, 5000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	if secret != "" {
		printSampleTokens(secret, doctors, patients)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role identity.Role, count int) ([]identity.User, error) {
	log.Printf("seeding %d %ss", count, role)

	const batchSize = 500

	var sample []identity.User
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			u := identity.User{
				ID:       uuid.New(),
				Username: uniqueEmail(),
				Role:     role,
				Approved: true,
			}

			// A slice of accounts has no email on file, like real rosters do.
			if i%10 == 9 {
				u.Username = strings.Split(u.Username, "@")[0]
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, username, role, approved, blocked, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, u.ID, u.Username, u.Role, u.Approved, u.Blocked)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}

			if len(sample) < 3 {
				sample = append(sample, u)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("%ss seeded: %d/%d", role, end, count)
	}

	return sample, nil
}

func uniqueEmail() string {
	// gofakeit emails collide at scale; a numeric suffix keeps the
	// username unique constraint happy.
	email := gofakeit.Email()
	at := strings.Index(email, "@")
	return email[:at] + gofakeit.DigitN(6) + email[at:]
}

func printSampleTokens(secret string, doctors, patients []identity.User) {
	log.Println("sample tokens (valid 24h):")
	for _, u := range append(doctors, patients...) {
		token, err := identity.SignToken(u, secret, 24*time.Hour)
		if err != nil {
			log.Printf("sign token for %s: %v", u.ID, err)
			continue
		}
		log.Printf("  %s %s: %s", u.Role, u.ID, token)
	}
}
