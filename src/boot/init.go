package boot

import (
	"log"
	"time"

	"brpay/src/common"
	"brpay/src/config"
	"brpay/src/db"
	"brpay/src/lib"
	"brpay/src/lib/providers"
	"brpay/src/models"
	"brpay/src/types"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	gdb := db.GetDb()

	err := gdb.AutoMigrate(
		&models.Transaction{},
		&models.TransactionEvent{},
		&models.IdempotencyKey{},
		&models.Merchant{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return gdb
}

func InitProviders() {
	providers.RegisterDefaults()
}

func InitBroker() {
	if p := lib.GetKafkaProducer(); p != nil {
		log.Println("[kafka] Event stream producer ready")
	}
}

var scheduler gocron.Scheduler

// InitScheduler starts the stale-pix expiry sweep.
func InitScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error creating scheduler: %s\n", err.Error())
		return
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(common.ExpireStalePixTransactions),
	)
	if err != nil {
		log.Printf("Error scheduling expiry job: %s\n", err.Error())
		return
	}
	scheduler = sched
	sched.Start()
	log.Printf("[scheduler] Pix expiry sweep running every minute (window %s)\n", config.PixExpiry())
}

func StopScheduler() {
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %s\n", err.Error())
	}
}

// SeedMerchants inserts a default merchant from env config when the table is
// empty, so routing has a mode to consult on a fresh database.
func SeedMerchants() {
	gdb := db.GetDb()
	var count int64
	if err := gdb.Model(&models.Merchant{}).Count(&count).Error; err != nil || count > 0 {
		return
	}
	merchant := models.Merchant{
		Tag:  "default",
		Name: config.MerchantName(),
		City: config.MerchantCity(),
		Mode: types.MODE_WHITE,
	}
	if err := gdb.Create(&merchant).Error; err != nil {
		log.Printf("Error seeding default merchant: %s\n", err.Error())
		return
	}
	log.Println("[boot] Seeded default merchant")
}
