// Package store persists settlement records to sqlite for auditing.
package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/djb15/example-liquidity-layer/internal/events"
	"github.com/djb15/example-liquidity-layer/internal/settlement"
)

// SettlementRecord is one row of the settlements table.
type SettlementRecord struct {
	FastVAAHash  string    `json:"fast_vaa_hash"`
	Fee          uint64    `json:"fee"`
	UserAmount   uint64    `json:"user_amount"`
	BaseFeeToken string    `json:"base_fee_token"`
	BalanceAfter uint64    `json:"balance_after"`
	WithExecute  string    `json:"with_execute"`
	Fill         []byte    `json:"fill"`
	TxHash       string    `json:"tx_hash"`
	SettledAt    time.Time `json:"settled_at"`
}

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the settlement database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database.
//
// Amounts are stored as decimal strings: sqlite integers are signed
// 64-bit, so a saturated u64 fee would wrap negative as an INTEGER
// column.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open settlement db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settlements (
			fast_vaa_hash TEXT PRIMARY KEY,
			fee TEXT,
			user_amount TEXT,
			base_fee_token TEXT,
			balance_after TEXT,
			with_execute TEXT,
			fill BLOB,
			tx_hash TEXT DEFAULT '',
			settled_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create settlements table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSettlement records one settled auction, including the encoded
// fill so delivery can be replayed from the record alone. The primary
// key on the fast VAA hash makes a second insert for the same auction
// fail, which backs up the exactly-once invariant at the persistence
// layer. The tx hash starts empty; RecordDelivery fills it in once the
// fill lands.
func (s *Store) InsertSettlement(settled *settlement.Settled, event events.AuctionSettled) error {
	fillBytes, err := settled.Fill.Encode()
	if err != nil {
		return fmt.Errorf("encode fill for settlement record: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO settlements (fast_vaa_hash, fee, user_amount, base_fee_token, balance_after, with_execute, fill)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		hex.EncodeToString(event.FastVAAHash[:]),
		strconv.FormatUint(settled.Fee, 10),
		strconv.FormatUint(settled.UserAmount, 10),
		event.BaseFeeToken.Key.String(),
		strconv.FormatUint(event.BaseFeeToken.BalanceAfter, 10),
		event.WithExecute.String(),
		fillBytes,
	)
	return err
}

// RecordDelivery stores the delivery transaction hash for a previously
// inserted settlement.
func (s *Store) RecordDelivery(fastVAAHash, txHash string) error {
	res, err := s.db.Exec(`
		UPDATE settlements SET tx_hash = ? WHERE fast_vaa_hash = ?
	`, txHash, fastVAAHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no settlement record for %s", fastVAAHash)
	}
	return nil
}

// ReadSettlements returns every recorded settlement.
func (s *Store) ReadSettlements() ([]SettlementRecord, error) {
	rows, err := s.db.Query(`
		SELECT fast_vaa_hash, fee, user_amount, base_fee_token, balance_after, with_execute, fill, tx_hash, settled_at
		FROM settlements
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SettlementRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReadSettlement returns the record for one fast VAA hash, or
// sql.ErrNoRows.
func (s *Store) ReadSettlement(fastVAAHash string) (SettlementRecord, error) {
	row := s.db.QueryRow(`
		SELECT fast_vaa_hash, fee, user_amount, base_fee_token, balance_after, with_execute, fill, tx_hash, settled_at
		FROM settlements
		WHERE fast_vaa_hash = ?
	`, fastVAAHash)
	return scanRecord(row.Scan)
}

func scanRecord(scan func(dest ...any) error) (SettlementRecord, error) {
	var rec SettlementRecord
	var fee, userAmount, balanceAfter string
	if err := scan(&rec.FastVAAHash, &fee, &userAmount, &rec.BaseFeeToken,
		&balanceAfter, &rec.WithExecute, &rec.Fill, &rec.TxHash, &rec.SettledAt); err != nil {
		return rec, err
	}

	var err error
	if rec.Fee, err = strconv.ParseUint(fee, 10, 64); err != nil {
		return rec, fmt.Errorf("malformed fee %q: %w", fee, err)
	}
	if rec.UserAmount, err = strconv.ParseUint(userAmount, 10, 64); err != nil {
		return rec, fmt.Errorf("malformed user amount %q: %w", userAmount, err)
	}
	if rec.BalanceAfter, err = strconv.ParseUint(balanceAfter, 10, 64); err != nil {
		return rec, fmt.Errorf("malformed balance %q: %w", balanceAfter, err)
	}
	return rec, nil
}
