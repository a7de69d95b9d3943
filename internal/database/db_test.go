package database

import (
	"testing"

	"fuelops/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The schema must migrate on the sqlite dialect too, so it cannot rely on
// postgres-only DDL such as a gen_random_uuid() column default. IDs come from
// the model BeforeCreate hooks instead.
func TestMigratePortableSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	fuelType := model.FuelType{Name: "Diesel", Unit: "liter", IsActive: true}
	require.NoError(t, db.Create(&fuelType).Error)
	assert.NotEqual(t, uuid.Nil, fuelType.ID)
}
