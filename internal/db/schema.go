package db

import (
	"context"
	"fmt"
)

var schema = []struct {
	table string
	ddl   string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(80) NOT NULL,
			email VARCHAR(191) NOT NULL,
			photo VARCHAR(255) NOT NULL DEFAULT 'default.jpg',
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			password VARCHAR(72) NOT NULL,
			password_changed_at DATETIME(3) NULL,
			password_reset_token CHAR(64) NULL,
			password_reset_expires DATETIME(3) NULL,
			active TINYINT(1) NOT NULL DEFAULT 1,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY users_email_unique (email),
			KEY users_reset_token_idx (password_reset_token)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"tours", `
		CREATE TABLE IF NOT EXISTS tours (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(40) NOT NULL,
			slug VARCHAR(80) NOT NULL,
			duration INT NOT NULL,
			max_group_size INT NOT NULL,
			difficulty VARCHAR(16) NOT NULL,
			ratings_average DOUBLE NOT NULL DEFAULT 4.5,
			ratings_quantity INT NOT NULL DEFAULT 0,
			price DOUBLE NOT NULL,
			price_discount DOUBLE NULL,
			summary TEXT NOT NULL,
			description TEXT NULL,
			image_cover VARCHAR(255) NOT NULL,
			images JSON NULL,
			start_dates JSON NULL,
			secret_tour TINYINT(1) NOT NULL DEFAULT 0,
			start_location JSON NULL,
			start_lng DOUBLE NULL,
			start_lat DOUBLE NULL,
			locations JSON NULL,
			guides JSON NULL,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY tours_name_unique (name),
			KEY tours_price_rating_idx (price, ratings_average),
			KEY tours_slug_idx (slug)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"reviews", `
		CREATE TABLE IF NOT EXISTS reviews (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			review TEXT NOT NULL,
			rating DOUBLE NOT NULL,
			tour_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY reviews_tour_user_unique (tour_id, user_id),
			CONSTRAINT reviews_tour_fk FOREIGN KEY (tour_id) REFERENCES tours(id) ON DELETE CASCADE,
			CONSTRAINT reviews_user_fk FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT reviews_rating_range CHECK (rating BETWEEN 1 AND 5)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"bookings", `
		CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			tour_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			price DOUBLE NOT NULL,
			paid TINYINT(1) NOT NULL DEFAULT 1,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			KEY bookings_user_tour_idx (user_id, tour_id),
			CONSTRAINT bookings_tour_fk FOREIGN KEY (tour_id) REFERENCES tours(id),
			CONSTRAINT bookings_user_fk FOREIGN KEY (user_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// EnsureSchema creates missing tables in dependency order.
func EnsureSchema(ctx context.Context, q Queryer) error {
	for _, t := range schema {
		if HasTable(ctx, q, t.table) {
			continue
		}
		if _, err := q.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.table, err)
		}
	}
	return nil
}
