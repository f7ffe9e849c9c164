package seed

import "beverageHub/domain"

func v(size string, price float64, stock int) domain.ProductVariation {
	return domain.ProductVariation{Size: size, Price: price, Stock: stock}
}

func pk(packetType string, units int, size string, price, savings float64, stock int) domain.ProductPacket {
	return domain.ProductPacket{
		PacketType:     packetType,
		UnitsPerPacket: units,
		Size:           size,
		PricePerPacket: price,
		Savings:        savings,
		Stock:          stock,
	}
}

// sampleProducts returns a fresh copy of the starter catalog on every call.
func sampleProducts() []domain.Product {
	return []domain.Product{
		{
			Name:        "Coca-Cola",
			Description: "Classic refreshing cola drink",
			Category:    domain.CategorySoda,
			Brand:       "Coca-Cola",
			BasePrice:   50,
			Rating:      4.5,
			Variations:  []domain.ProductVariation{v("330ml", 50, 100), v("500ml", 70, 150), v("1L", 120, 80)},
			Packets: []domain.ProductPacket{
				pk("6-pack", 6, "330ml", 280, 20, 50),
				pk("12-pack", 12, "330ml", 540, 60, 30),
				pk("6-pack", 6, "500ml", 390, 30, 40),
			},
		},
		{
			Name:        "Dasani Water",
			Description: "Pure drinking water",
			Category:    domain.CategoryWater,
			Brand:       "Coca-Cola",
			BasePrice:   30,
			Rating:      4.2,
			Variations:  []domain.ProductVariation{v("500ml", 30, 200), v("1L", 50, 150), v("1.5L", 70, 100)},
			Packets: []domain.ProductPacket{
				pk("6-pack", 6, "500ml", 160, 20, 60),
				pk("12-pack", 12, "500ml", 300, 60, 40),
				pk("24-pack", 24, "500ml", 576, 144, 20),
			},
		},
		{
			Name:        "Minute Maid Orange",
			Description: "Fresh orange juice drink",
			Category:    domain.CategoryJuice,
			Brand:       "Minute Maid",
			BasePrice:   80,
			Rating:      4.7,
			Variations:  []domain.ProductVariation{v("300ml", 80, 120), v("500ml", 120, 90)},
			Packets: []domain.ProductPacket{
				pk("4-pack", 4, "300ml", 300, 20, 30),
				pk("6-pack", 6, "300ml", 450, 30, 25),
			},
		},
		{
			Name:        "Red Bull Energy",
			Description: "Energy drink that gives you wings",
			Category:    domain.CategoryEnergy,
			Brand:       "Red Bull",
			BasePrice:   150,
			Rating:      4.3,
			Variations:  []domain.ProductVariation{v("250ml", 150, 80), v("355ml", 200, 60)},
			Packets: []domain.ProductPacket{
				pk("4-pack", 4, "250ml", 570, 30, 25),
				pk("8-pack", 8, "250ml", 1080, 120, 15),
			},
		},
		{
			Name:        "Lipton Ice Tea",
			Description: "Refreshing iced tea",
			Category:    domain.CategoryTea,
			Brand:       "Lipton",
			BasePrice:   60,
			Rating:      4.1,
			Variations:  []domain.ProductVariation{v("500ml", 60, 100)},
		},
		{
			Name:        "Sprite",
			Description: "Lemon-lime flavored soda",
			Category:    domain.CategorySoda,
			Brand:       "Coca-Cola",
			BasePrice:   50,
			Rating:      4.4,
			Variations:  []domain.ProductVariation{v("330ml", 50, 120), v("500ml", 70, 100), v("1L", 120, 60)},
		},
		{
			Name:        "Keringet Water",
			Description: "Natural mineral water from Kenya",
			Category:    domain.CategoryWater,
			Brand:       "Keringet",
			BasePrice:   40,
			Rating:      4.6,
			Variations:  []domain.ProductVariation{v("500ml", 40, 150), v("1L", 70, 100)},
		},
		{
			Name:        "Del Monte Pineapple",
			Description: "Sweet pineapple juice",
			Category:    domain.CategoryJuice,
			Brand:       "Del Monte",
			BasePrice:   90,
			Rating:      4.5,
			Variations:  []domain.ProductVariation{v("250ml", 90, 80), v("500ml", 150, 60)},
		},
	}
}
