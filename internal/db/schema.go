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
	full_name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(32) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
	locked TINYINT(1) NOT NULL DEFAULT 0,
	active TINYINT(1) NOT NULL DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"refresh_tokens", `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	token_hash CHAR(64) NOT NULL,
	user_id BIGINT NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked TINYINT(1) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_token (token_hash),
	KEY idx_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"routes", `
CREATE TABLE IF NOT EXISTS routes (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	code VARCHAR(64) NOT NULL,
	start_location VARCHAR(255) NOT NULL,
	end_location VARCHAR(255) NOT NULL,
	duration_days INT NOT NULL DEFAULT 1,
	description TEXT,
	itinerary JSON,
	images JSON,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_code (code),
	FULLTEXT KEY ft_search (name, start_location, end_location)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"trips", `
CREATE TABLE IF NOT EXISTS trips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id BIGINT NOT NULL,
	departure_date DATETIME NOT NULL,
	return_date DATETIME NOT NULL,
	price BIGINT NOT NULL,
	total_seats INT NOT NULL,
	available_seats INT NOT NULL,
	pick_up_time VARCHAR(5) NOT NULL DEFAULT '',
	pick_up_location VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(16) NOT NULL DEFAULT 'SCHEDULED',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_route_departure (route_id, departure_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"favorites", `
CREATE TABLE IF NOT EXISTS favorites (
	user_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, route_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"cart_items", `
CREATE TABLE IF NOT EXISTS cart_items (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	trip_id BIGINT NOT NULL,
	quantity INT NOT NULL,
	unit_price BIGINT NOT NULL,
	pending_booking_id BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_user_trip (user_id, trip_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	code VARCHAR(32) NOT NULL,
	trip_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	seat_count INT NOT NULL,
	unit_price BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
	note VARCHAR(512) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_code (code),
	KEY idx_user (user_id),
	KEY idx_trip (trip_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"travelers", `
CREATE TABLE IF NOT EXISTS travelers (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	full_name VARCHAR(255) NOT NULL,
	gender VARCHAR(8) NOT NULL,
	date_of_birth DATE NULL,
	identity_number VARCHAR(64) NOT NULL DEFAULT '',
	email VARCHAR(255) NOT NULL DEFAULT '',
	phone VARCHAR(32) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"invoices", `
CREATE TABLE IF NOT EXISTS invoices (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	code VARCHAR(32) NOT NULL,
	booking_id BIGINT NOT NULL,
	total_amount BIGINT NOT NULL,
	payment_status VARCHAR(16) NOT NULL DEFAULT 'UNPAID',
	payment_method VARCHAR(16) NOT NULL DEFAULT 'CASH',
	paid_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_booking (booking_id),
	UNIQUE KEY uniq_code (code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"payment_links", `
CREATE TABLE IF NOT EXISTS payment_links (
	order_code BIGINT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	invoice_id BIGINT NOT NULL,
	amount BIGINT NOT NULL,
	checkout_url VARCHAR(512) NOT NULL DEFAULT '',
	qr_code TEXT,
	status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
}

// EnsureSchema creates missing tables; existing tables are left untouched.
func EnsureSchema(ctx context.Context, q Querier) error {
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
