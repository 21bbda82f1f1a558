package repository

import "robot-training-hub/core/models"

func strPtr(s string) *string { return &s }

// seedUsers are present in every fresh store
func seedUsers() []models.User {
	return []models.User{
		{
			ID:          1,
			Username:    "johndoe",
			Email:       "john@example.com",
			FullName:    "John Doe",
			Affiliation: strPtr("Researcher"),
		},
	}
}

// seedMarketplace is the catalog shown on the marketplace page
func seedMarketplace() []models.MarketplaceModel {
	sarah := func(avatar string) models.MarketplaceAuthor {
		return models.MarketplaceAuthor{ID: 1, Name: "Dr. Sarah Rodriguez", Avatar: avatar, Affiliation: "MIT CSAIL"}
	}
	return []models.MarketplaceModel{
		{
			ID:           1,
			Name:         "Humanoid Soccer Player",
			Description:  "A high-performance humanoid robot model for soccer simulation.",
			ThumbnailURL: "/images/humanoid.jpg",
			Category:     "humanoid",
			Tags:         []string{"soccer", "simulation"},
			Rating:       4.8,
			Downloads:    245,
			Price:        0,
			Likes:        32,
			License:      "MIT",
			Author:       sarah("/images/author1.png"),
		},
		{
			ID:           2,
			Name:         "Drone Swarm Controller",
			Description:  "Controller for multi-agent drone swarms.",
			ThumbnailURL: "/images/drone.jpg",
			Category:     "drone",
			Tags:         []string{"swarm", "controller"},
			Rating:       4.6,
			Downloads:    198,
			Price:        99,
			Likes:        21,
			License:      "Apache-2.0",
			Author:       models.MarketplaceAuthor{ID: 2, Name: "Prof. Michael Kim", Avatar: "/images/author2.png", Affiliation: "Stanford AI Lab"},
		},
		{
			ID:           3,
			Name:         "Humanoid Soccer Player2",
			Description:  "A high-performance humanoid robot model for soccer simulation.",
			ThumbnailURL: "/images/humanoid.jpg",
			Category:     "humanoid",
			Tags:         []string{"soccer", "simulation"},
			Rating:       4.8,
			Downloads:    245,
			Price:        0,
			Likes:        32,
			License:      "MIT",
			Author:       sarah("/images/author2.png"),
		},
	}
}
