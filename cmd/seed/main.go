package main

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"propertyhub/internal/config"
	"propertyhub/internal/database"
	"propertyhub/internal/domain"
	jwtsvc "propertyhub/internal/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, nil)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	log.Println("Cleaning old data...")
	for _, table := range []string{"chat_messages", "complaints", "work_orders", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("clean %s: %v", table, err)
		}
	}

	// ================== USERS ==================
	log.Println("Creating users...")
	owner := createUser(db, "owner", "Dana Owner", domain.RoleOwner, "owner123")
	worker := createUser(db, "worker", "Lee Worker", domain.RoleWorker, "worker123")
	manager := createUser(db, "manager", "Sam Manager", domain.RoleManager, "manager123")

	// ================== ORDERS ==================
	log.Println("Creating work orders...")
	now := time.Now()
	workerID := worker.ID
	cost := decimal.NewFromInt(150)
	orders := []domain.WorkOrder{
		{
			OrderNumber:  "WO-SEED-0001",
			OwnerID:      owner.ID,
			PropertyInfo: "Block 3, flat 12",
			Description:  "Kitchen tap is leaking",
			Urgency:      domain.UrgencyHigh,
			Status:       domain.WorkOrderPending,
		},
		{
			OrderNumber:  "WO-SEED-0002",
			OwnerID:      owner.ID,
			WorkerID:     &workerID,
			PropertyInfo: "Block 3, flat 12",
			Description:  "Bathroom light flickers",
			Urgency:      domain.UrgencyMedium,
			Status:       domain.WorkOrderInProgress,
			AssignedAt:   &now,
			StartedAt:    &now,
		},
		{
			OrderNumber:  "WO-SEED-0003",
			OwnerID:      owner.ID,
			WorkerID:     &workerID,
			PropertyInfo: "Block 3, flat 12",
			Description:  "Replace door lock",
			Urgency:      domain.UrgencyLow,
			Status:       domain.WorkOrderPendingPayment,
			Cost:         &cost,
			AssignedAt:   &now,
			StartedAt:    &now,
			CompletedAt:  &now,
		},
	}
	if err := db.Create(&orders).Error; err != nil {
		log.Fatal("create work orders:", err)
	}

	db.Create(&domain.ChatMessage{
		OrderID:  orders[1].ID,
		SenderID: owner.ID,
		IsOwner:  true,
		Text:     "The switch is next to the mirror",
	})

	// ================== COMPLAINTS ==================
	log.Println("Creating complaints...")
	db.Create(&domain.Complaint{
		OwnerID:  owner.ID,
		Category: domain.ComplaintNoise,
		Content:  "Loud music after midnight in flat 15",
		Status:   domain.ComplaintPending,
	})

	// ================== TOKENS ==================
	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	for _, u := range []*domain.User{owner, worker, manager} {
		tok, err := tokens.GenerateToken(u.ID, string(u.Role))
		if err != nil {
			log.Fatal("generate token:", err)
		}
		fmt.Printf("%-8s id=%d token=%s\n", u.Role, u.ID, tok)
	}
	log.Println("Seed completed")
}

func createUser(db *gorm.DB, username, name string, role domain.UserRole, password string) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash password:", err)
	}
	u := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		log.Fatalf("create user %s: %v", username, err)
	}
	log.Printf("%s created: %s / %s", role, username, password)
	return u
}
