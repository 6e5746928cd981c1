package transferdb

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/guminc/EvolvableArchetype/archetype"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	eventTime INTEGER NOT NULL,
	kind TEXT NOT NULL,
	firstID INTEGER NOT NULL,
	lastID INTEGER NOT NULL,
	fromAddress BLOB,
	toAddress BLOB NOT NULL,
	quantity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS event_id_range ON event(firstID, lastID);
CREATE INDEX IF NOT EXISTS event_from ON event(fromAddress);
CREATE INDEX IF NOT EXISTS event_to ON event(toAddress);`

// TransferDB journals mint and transfer events.
type TransferDB struct {
	path          string
	db            *sql.DB
	sqliteVersion string
}

// New open an event journal.
func New(path string) (*TransferDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}
	s, _, _ := sqlite3.Version()
	return &TransferDB{
		path:          path,
		db:            db,
		sqliteVersion: s,
	}, nil
}

// NewMem create a memory sqlite db
func NewMem() (*TransferDB, error) {
	return New(":memory:")
}

// Insert appends events to the journal in one transaction.
func (db *TransferDB) Insert(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, ev := range events {
		var from []byte
		if ev.From != nil {
			from = ev.From.Bytes()
		}
		if _, err = tx.Exec("INSERT INTO event(eventTime, kind, firstID, lastID, fromAddress, toAddress, quantity) VALUES (?, ?, ?, ?, ?, ?, ?);",
			int64(ev.Time),
			string(ev.Kind),
			int64(ev.FirstID),
			int64(ev.LastID),
			from,
			ev.To.Bytes(),
			int64(ev.Quantity)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// query query events
func (db *TransferDB) query(stmt string, args ...interface{}) ([]*Event, error) {
	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			seq       int64
			eventTime int64
			kind      string
			firstID   int64
			lastID    int64
			from      []byte
			to        []byte
			quantity  int64
		)
		if err := rows.Scan(
			&seq,
			&eventTime,
			&kind,
			&firstID,
			&lastID,
			&from,
			&to,
			&quantity,
		); err != nil {
			return nil, err
		}
		ev := &Event{
			Seq:      seq,
			Time:     uint64(eventTime),
			Kind:     Kind(kind),
			FirstID:  uint64(firstID),
			LastID:   uint64(lastID),
			To:       archetype.BytesToAddress(to),
			Quantity: uint64(quantity),
		}
		if len(from) > 0 {
			addr := archetype.BytesToAddress(from)
			ev.From = &addr
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// QueryByToken returns events touching the given token id, newest first.
func (db *TransferDB) QueryByToken(id uint64, limit, offset uint64) ([]*Event, error) {
	return db.query(
		"SELECT seq, eventTime, kind, firstID, lastID, fromAddress, toAddress, quantity FROM event WHERE firstID <= ? AND lastID >= ? ORDER BY seq DESC LIMIT ? OFFSET ?;",
		int64(id), int64(id), int64(limit), int64(offset))
}

// QueryByAddress returns events where the address is sender or recipient, newest first.
func (db *TransferDB) QueryByAddress(addr archetype.Address, limit, offset uint64) ([]*Event, error) {
	return db.query(
		"SELECT seq, eventTime, kind, firstID, lastID, fromAddress, toAddress, quantity FROM event WHERE fromAddress = ? OR toAddress = ? ORDER BY seq DESC LIMIT ? OFFSET ?;",
		addr.Bytes(), addr.Bytes(), int64(limit), int64(offset))
}

// Path return db's directory
func (db *TransferDB) Path() string {
	return db.path
}

// Close close sqlite
func (db *TransferDB) Close() {
	db.db.Close()
}
