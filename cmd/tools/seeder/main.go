package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedRateConfig(db)
	seedPlatforms(db)

	log.Println("Seeding completed successfully!")
}

func seedRateConfig(db *sql.DB) {
	rates := []struct {
		Key   string
		Value string
		Kind  string
	}{
		{"sales_tax_rate", "0.07", "percentage"},
		{"marketplace_final_value_fee_rate_games", "0.13", "percentage"},
		{"marketplace_final_value_fee_rate_consoles", "0.08", "percentage"},
		{"payment_processing_fee_rate", "0.03", "percentage"},
		{"flat_transaction_fee", "0.30", "fixed_amount"},
		{"advertising_fee_rate", "0.03", "percentage"},
		{"shipping_cost_fixed_games", "4.99", "fixed_amount"},
		{"shipping_cost_fixed_consoles", "12.99", "fixed_amount"},
		{"supplies_cost_threshold", "40.00", "fixed_amount"},
		{"supplies_cost_fixed_under", "0.87", "fixed_amount"},
		{"supplies_cost_fixed_over", "1.25", "fixed_amount"},
		{"cashback_rate_regular", "0.01", "percentage"},
		{"cashback_rate_shipping", "0.05", "percentage"},
		{"target_profit_margin", "0.40", "percentage"},
		{"deal_band_excellent", "0.80", "percentage"},
		{"deal_band_good", "0.95", "percentage"},
		{"deal_band_fair", "1.00", "percentage"},
	}

	fmt.Println("Seeding rate configuration...")
	for _, r := range rates {
		_, err := db.Exec(`
			INSERT INTO rate_config (key, value, kind, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (key) DO NOTHING;
		`, r.Key, r.Value, r.Kind)
		if err != nil {
			log.Printf("Failed to seed rate %s: %v", r.Key, err)
		}
	}
}

type variantSeed struct {
	Kind  string
	Price string
}

func seedPlatforms(db *sql.DB) {
	platforms := []struct {
		Name            string
		Category        string
		ManualSensitive bool
		DefaultMarkup   string
	}{
		{"PlayStation 3", "games", true, "3.50"},
		{"PlayStation 4", "games", false, "3.50"},
		{"PlayStation 5", "games", false, "3.50"},
		{"Nintendo GameCube", "games", true, "3.50"},
		{"Nintendo Switch", "games", false, "3.50"},
		{"Xbox 360", "games", true, "3.50"},
		{"Console Hardware", "consoles", false, "0.00"},
	}

	fmt.Println("Seeding platforms...")
	platformIDs := make(map[string]string)
	for _, p := range platforms {
		id := uuid.NewString()
		err := db.QueryRow(`
			INSERT INTO platforms (id, name, category, manual_sensitive, default_markup)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				category = EXCLUDED.category,
				manual_sensitive = EXCLUDED.manual_sensitive,
				updated_at = now()
			RETURNING id;
		`, id, p.Name, p.Category, p.ManualSensitive, p.DefaultMarkup).Scan(&id)
		if err != nil {
			log.Printf("Failed to upsert platform %s: %v", p.Name, err)
			continue
		}
		platformIDs[p.Name] = id
	}

	products := []struct {
		Platform string
		Title    string
		Variants []variantSeed
	}{
		{
			Platform: "PlayStation 3",
			Title:    "Spider-Man: Web of Shadows",
			Variants: []variantSeed{
				{"COMPLETE_IN_BOX", "86.34"},
				{"LOOSE", "41.20"},
			},
		},
		{
			Platform: "Nintendo GameCube",
			Title:    "Luigi's Mansion",
			Variants: []variantSeed{
				{"COMPLETE_IN_BOX", "74.99"},
				{"LOOSE", "45.50"},
			},
		},
		{
			Platform: "Console Hardware",
			Title:    "Nintendo Switch OLED",
			Variants: []variantSeed{
				{"CONSOLE", "254.00"},
			},
		},
	}

	fmt.Println("Seeding products...")
	for _, prod := range products {
		platformID, ok := platformIDs[prod.Platform]
		if !ok {
			log.Printf("Skipping product %s: platform %s missing", prod.Title, prod.Platform)
			continue
		}
		productID := uuid.NewString()
		err := db.QueryRow(`
			INSERT INTO products (id, platform_id, title)
			VALUES ($1, $2, $3)
			RETURNING id;
		`, productID, platformID, prod.Title).Scan(&productID)
		if err != nil {
			log.Printf("Failed to insert product %s: %v", prod.Title, err)
			continue
		}
		for _, v := range prod.Variants {
			_, err := db.Exec(`
				INSERT INTO product_variants (id, product_id, kind, market_price)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_id, kind) DO UPDATE SET
					market_price = EXCLUDED.market_price,
					priced_at = now();
			`, uuid.NewString(), productID, v.Kind, v.Price)
			if err != nil {
				log.Printf("Failed to insert variant %s %s: %v", prod.Title, v.Kind, err)
			}
		}
	}
}
