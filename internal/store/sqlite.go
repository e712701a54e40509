package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteMessageStore persists conversation history to a SQLite database. It
// implements MessageStore so it can replace the in-memory backend through
// configuration alone; durability beyond best effort is not a goal, so no
// retry or migration machinery exists beyond schema creation.
type SQLiteMessageStore struct {
	db *sql.DB
}

// NewSQLiteMessageStore opens (and if needed initializes) the database at
// path. Use ":memory:" for an ephemeral store in tests.
func NewSQLiteMessageStore(path string) (*SQLiteMessageStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	const schema = `CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation TEXT NOT NULL,
		sender TEXT NOT NULL,
		sender_avatar TEXT NOT NULL,
		recipient TEXT NOT NULL,
		text TEXT NOT NULL,
		time TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation, id);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteMessageStore{db: db}, nil
}

// Append implements MessageStore.
func (s *SQLiteMessageStore) Append(from, fromAvatar, to, text string) (Message, error) {
	msg := NewMessage(from, fromAvatar, to, text)

	_, err := s.db.Exec(
		`INSERT INTO messages (conversation, sender, sender_avatar, recipient, text, time, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ConversationKey(from, to), msg.From, msg.FromAvatar, msg.To, msg.Text, msg.Time, msg.Timestamp,
	)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// History implements MessageStore.
func (s *SQLiteMessageStore) History(a, b string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT sender, sender_avatar, recipient, text, time, timestamp
		 FROM messages WHERE conversation = ? ORDER BY id`,
		ConversationKey(a, b),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.From, &msg.FromAvatar, &msg.To, &msg.Text, &msg.Time, &msg.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, msg)
	}
	return history, rows.Err()
}

// Close implements MessageStore.
func (s *SQLiteMessageStore) Close() error {
	return s.db.Close()
}
