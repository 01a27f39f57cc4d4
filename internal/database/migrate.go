package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
// Instants keep microsecond precision.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('ADMIN','OWNER','GUEST') NOT NULL DEFAULT 'GUEST',
		created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		owner_id   BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(255) NOT NULL,
		price      BIGINT NOT NULL,
		capacity   INT NOT NULL,
		status     ENUM('ACTIVE','INACTIVE') NOT NULL DEFAULT 'ACTIVE',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY idx_rooms_status_price (status, price),
		CONSTRAINT fk_rooms_owner FOREIGN KEY (owner_id) REFERENCES users(id),
		CONSTRAINT chk_rooms_price CHECK (price >= 0),
		CONSTRAINT chk_rooms_capacity CHECK (capacity >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id    BIGINT UNSIGNED NOT NULL,
		guest_id   BIGINT UNSIGNED NOT NULL,
		check_in   DATETIME(6) NOT NULL,
		check_out  DATETIME(6) NOT NULL,
		status     ENUM('PENDING','CONFIRMED','CANCELLED') NOT NULL DEFAULT 'CONFIRMED',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY idx_reservations_overlap (room_id, status, check_in, check_out),
		KEY idx_reservations_guest (guest_id, check_in),
		CONSTRAINT fk_reservations_room FOREIGN KEY (room_id) REFERENCES rooms(id),
		CONSTRAINT fk_reservations_guest FOREIGN KEY (guest_id) REFERENCES users(id),
		CONSTRAINT chk_reservations_window CHECK (check_in < check_out)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// upgrades reservations created with second precision
	`ALTER TABLE reservations
		MODIFY check_in  DATETIME(6) NOT NULL,
		MODIFY check_out DATETIME(6) NOT NULL`,
}

// Migrate creates any missing table and upgrades older column types.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
