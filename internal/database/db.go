package database

import (
	"ferreteria-backend/internal/config"
	"ferreteria-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("No se pudo conectar a la base de datos")
	}

	err = DB.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.StockRecord{},
		&models.Order{},
		&models.OrderLine{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Error en AutoMigrate")
	}

	log.Info().Msg("Conexión a base de datos lista, migración completada")
}
