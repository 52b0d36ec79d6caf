package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/satis-shop/satis-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// NewTestDB opens a migrated in-memory database on a single connection
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "Failed to migrate test database")
	return db
}

// CreateUser stores a user whose name and email derive from auth0ID
func CreateUser(t *testing.T, db *gorm.DB, auth0ID, role string) *models.User {
	t.Helper()
	u := models.User{Auth0ID: auth0ID, Name: auth0ID, Email: auth0ID + "@example.com", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// CreateProduct stores a product with the given price and stock
func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

// StockOf reads the current stock of a product
func StockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Stock
}

// ReloadOrder reads an order without associations
func ReloadOrder(t *testing.T, db *gorm.DB, orderID uint) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, db.First(&o, orderID).Error)
	return o
}

// DecodeJSON decodes a JSON response body into a map
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response is not JSON: %s", w.Body.String())
	return body
}

// ErrorCode returns error.code from a JSON error envelope
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := DecodeJSON(t, w)
	errData, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	code, _ := errData["code"].(string)
	return code
}
