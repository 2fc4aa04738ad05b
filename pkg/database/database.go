package database

import (
	"eduquiz_backend/internal/config"
	"eduquiz_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string, forceMigrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式默认不迁移，需显式 --migrate
	if mode == "release" && !forceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizProgress{},
		&model.QuizAttempt{},
		&model.AssistanceLevel1Def{},
		&model.AssistanceLevel1Question{},
		&model.AssistanceLevel2Def{},
		&model.AssistanceLevel2Question{},
		&model.AssistanceLevel3Def{},
		&model.AssistanceLevel2Submission{},
		&model.AssistanceLevel2Answer{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
