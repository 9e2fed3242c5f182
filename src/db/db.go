// Package db owns the shared gorm handle for the payment store.
package db

import (
	"brpay/src/config"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

// GetDb lazily opens the postgres pool. Tests swap the handle in through
// NewDB instead of connecting.
func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	conn, err := gorm.Open(postgres.Open(config.GetDSN()))
	if err != nil {
		log.Printf("[db] Error connecting to payment store: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("[db] Error establishing connection to payment store: %s\n", err.Error())
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	db = conn
	return conn
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}
