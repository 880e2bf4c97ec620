package services

import "chatcart/pkg"

// MockElectronics is the built-in electronics catalog.
func MockElectronics() []pkg.Product {
	return []pkg.Product{
		{ID: "101", Title: "iPhone 15 Pro", Price: 84999, OriginalPrice: 99999, DiscountPct: 15, Category: "electronics",
			Rating: pkg.Rating{Rate: 4.8, Count: 250}, Brand: "Apple", Description: "Latest iPhone with advanced camera and A17 Pro chip"},
		{ID: "102", Title: "Samsung Galaxy S24", Price: 74999, OriginalPrice: 84999, DiscountPct: 12, Category: "electronics",
			Rating: pkg.Rating{Rate: 4.6, Count: 180}, Brand: "Samsung", Description: "Powerful Android smartphone with AI features"},
		{ID: "103", Title: "MacBook Pro 16-inch", Price: 199999, OriginalPrice: 229999, DiscountPct: 13, Category: "electronics",
			Rating: pkg.Rating{Rate: 4.9, Count: 150}, Brand: "Apple", Description: "Professional laptop for creative work"},
		{ID: "104", Title: "Sony WH-1000XM5", Price: 34999, OriginalPrice: 39999, DiscountPct: 13, Category: "electronics",
			Rating: pkg.Rating{Rate: 4.7, Count: 320}, Brand: "Sony", Description: "Industry-leading noise canceling headphones"},
		{ID: "105", Title: "PlayStation 5", Price: 44999, OriginalPrice: 49999, DiscountPct: 10, Category: "electronics",
			Rating: pkg.Rating{Rate: 4.8, Count: 420}, Brand: "Sony", Description: "Next-gen gaming console"},
	}
}

// MockFashion is the built-in fashion catalog.
func MockFashion() []pkg.Product {
	return []pkg.Product{
		{ID: "201", Title: "Men's Casual Shirt", Price: 3799, OriginalPrice: 4499, DiscountPct: 16, Category: "fashion",
			Rating: pkg.Rating{Rate: 4.3, Count: 89}, Brand: "Urban Classic", Description: "Comfortable cotton casual shirt"},
		{ID: "202", Title: "Women's Summer Dress", Price: 5499, OriginalPrice: 6499, DiscountPct: 15, Category: "fashion",
			Rating: pkg.Rating{Rate: 4.5, Count: 120}, Brand: "Summer Bliss", Description: "Elegant floral summer dress"},
		{ID: "203", Title: "Leather Jacket", Price: 16999, OriginalPrice: 19999, DiscountPct: 15, Category: "fashion",
			Rating: pkg.Rating{Rate: 4.7, Count: 75}, Brand: "Rider's Edge", Description: "Genuine leather biker jacket"},
		{ID: "204", Title: "Running Shoes", Price: 9999, OriginalPrice: 11999, DiscountPct: 17, Category: "fashion",
			Rating: pkg.Rating{Rate: 4.4, Count: 200}, Brand: "RunFast", Description: "Lightweight running shoes"},
		{ID: "205", Title: "Designer Handbag", Price: 24999, OriginalPrice: 29999, DiscountPct: 17, Category: "fashion",
			Rating: pkg.Rating{Rate: 4.8, Count: 65}, Brand: "Elegance", Description: "Luxury leather handbag"},
	}
}
