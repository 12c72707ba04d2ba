package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	BaseModel
	Name          string  `json:"name"`
	Slug          string  `gorm:"uniqueIndex" json:"slug"`
	Description   string  `json:"description"`
	Category      string  `gorm:"index" json:"category"`
	CatalogNumber string  `json:"catalog_number"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"image_url"`
	InStock       bool    `json:"in_stock"`
	Featured      bool    `json:"featured"`
}

type BlogCategory struct {
	BaseModel
	Name        string `json:"name"`
	Slug        string `gorm:"uniqueIndex" json:"slug"`
	Description string `json:"description"`
}

type BlogPost struct {
	BaseModel
	Title       string        `json:"title"`
	Slug        string        `gorm:"uniqueIndex" json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Content     string        `json:"content"`
	CoverImage  string        `json:"cover_image"`
	Author      string        `json:"author"`
	CategoryID  *uuid.UUID    `gorm:"type:uuid" json:"category_id"`
	Category    *BlogCategory `json:"category,omitempty"`
	Published   bool          `gorm:"index" json:"published"`
	PublishedAt *time.Time    `json:"published_at"`
}

type BlogComment struct {
	BaseModel
	PostID   uuid.UUID `gorm:"type:uuid;index" json:"post_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Content  string    `json:"content"`
	Approved bool      `gorm:"index" json:"approved"`
}

type Testimonial struct {
	BaseModel
	CustomerName string `json:"customer_name"`
	Location     string `json:"location"`
	Rating       int    `json:"rating"`
	Content      string `json:"content"`
	Featured     bool   `json:"featured"`
}
