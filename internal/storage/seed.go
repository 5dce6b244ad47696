package storage

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"digistore/internal/models"
)

// Default admin account seeded into a fresh store. The password must be
// changed through the profile endpoints on first login.
const (
	seedAdminEmail    = "admin@digistore.local"
	seedAdminPassword = "admin123"
	seedAdminName     = "Store Admin"
)

func floatPtr(f float64) *float64 { return &f }

// seedProducts is the sample catalog written into any store that has never
// been seeded before.
func seedProducts() []models.Product {
	return []models.Product{
		{
			Name:          "Windows 11 Pro License",
			Description:   "Genuine retail license key, instant email delivery.",
			Image:         "/images/windows11pro.png",
			Price:         39.99,
			OriginalPrice: floatPtr(199.99),
			Rating:        4.8,
			ReviewCount:   1243,
			Badge:         "Best Seller",
			Category:      "Operating Systems",
			Stock:         50,
		},
		{
			Name:        "Office 365 Family (1 Year)",
			Description: "12-month subscription for up to 6 users.",
			Image:       "/images/office365.png",
			Price:       64.99,
			Rating:      4.7,
			ReviewCount: 876,
			Category:    "Productivity",
			Stock:       35,
		},
		{
			Name:          "Antivirus Total Security (3 Devices)",
			Description:   "1-year protection for Windows, macOS and Android.",
			Image:         "/images/antivirus.png",
			Price:         24.99,
			OriginalPrice: floatPtr(59.99),
			Rating:        4.5,
			ReviewCount:   432,
			Badge:         "Deal",
			Category:      "Security",
			Stock:         80,
		},
		{
			Name:        "Photo Editor Pro Lifetime",
			Description: "Lifetime license, free major upgrades included.",
			Image:       "/images/photoeditor.png",
			Price:       79.00,
			Rating:      4.3,
			ReviewCount: 198,
			Category:    "Creative",
			Stock:       20,
		},
		{
			Name:        "Cloud Backup 2TB (1 Year)",
			Description: "Encrypted cloud backup subscription, 2TB quota.",
			Image:       "/images/cloudbackup.png",
			Price:       49.99,
			Rating:      4.6,
			ReviewCount: 305,
			Category:    "Utilities",
			Stock:       100,
		},
	}
}

// seedAdmin builds the default admin user with a freshly hashed password.
func seedAdmin(id string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         seedAdminEmail,
		Password:      string(hash),
		Name:          seedAdminName,
		Role:          models.RoleAdmin,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
