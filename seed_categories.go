package main

import (
	"log"

	"servicematch-server/database"
	"servicematch-server/models"
)

// SeedCategories inserts the default listing categories. Existing rows are
// left untouched so it is safe to run on every boot.
func SeedCategories() {
	db := database.GetDB()

	categories := []models.Category{
		{
			Name:        "Home Cleaning",
			Description: "Professional cleaning for homes and offices",
			Icon:        "sparkles",
			Color:       "#eb5436",
			IsActive:    true,
			SortOrder:   1,
		},
		{
			Name:        "Plumbing",
			Description: "Leak repair, faucets and plumbing installations",
			Icon:        "water",
			Color:       "#3b82f6",
			IsActive:    true,
			SortOrder:   2,
		},
		{
			Name:        "Electrical",
			Description: "Electrical installation and repair",
			Icon:        "flash",
			Color:       "#f59e0b",
			IsActive:    true,
			SortOrder:   3,
		},
		{
			Name:        "Painting",
			Description: "Interior and exterior painting, prep and finishes",
			Icon:        "paint-roller",
			Color:       "#8b5cf6",
			IsActive:    true,
			SortOrder:   4,
		},
		{
			Name:        "Moving & Delivery",
			Description: "Moving help, furniture assembly and deliveries",
			Icon:        "truck",
			Color:       "#10b981",
			IsActive:    true,
			SortOrder:   5,
		},
		{
			Name:        "Tutoring",
			Description: "Private lessons and academic coaching",
			Icon:        "book",
			Color:       "#ec4899",
			IsActive:    true,
			SortOrder:   6,
		},
		{
			Name:        "Beauty & Wellness",
			Description: "Hair, makeup, massage and personal care at home",
			Icon:        "heart",
			Color:       "#f43f5e",
			IsActive:    true,
			SortOrder:   7,
		},
		{
			Name:        "Appliance Repair",
			Description: "Fridges, washing machines and other appliances",
			Icon:        "tools",
			Color:       "#64748b",
			IsActive:    true,
			SortOrder:   8,
		},
	}

	for _, category := range categories {
		var existing models.Category
		if err := db.Where("name = ?", category.Name).First(&existing).Error; err != nil {
			if err := db.Create(&category).Error; err != nil {
				log.Printf("Failed to create category %s: %v", category.Name, err)
				continue
			}
			log.Printf("✅ Created category: %s", category.Name)
		}
	}
}
