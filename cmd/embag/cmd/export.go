package cmd

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"

	"github.com/embarktrucks/embag/bag"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var exportSQLiteOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a bag file's contents to another format",
}

var exportSQLiteCmd = &cobra.Command{
	Use:   "sqlite <bag file>",
	Short: "Export a bag's connections, topics, and messages into a SQLite database",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("expected exactly one bag file argument")
		}
		if exportSQLiteOut == "" {
			log.Fatal("--out is required")
		}
		b, err := bag.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := exportSQLite(b, exportSQLiteOut); err != nil {
			log.Fatal(err)
		}
	},
}

func exportSQLite(b *bag.Bag, path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.ErrExist
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	schema := `
CREATE TABLE connections (
	id INTEGER PRIMARY KEY,
	topic TEXT NOT NULL,
	type TEXT NOT NULL,
	md5sum TEXT,
	callerid TEXT,
	latching INTEGER NOT NULL,
	message_count INTEGER NOT NULL
);
CREATE TABLE topics (
	topic TEXT PRIMARY KEY,
	message_count INTEGER NOT NULL
);
CREATE TABLE messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	connection_id INTEGER NOT NULL REFERENCES connections(id),
	time_sec INTEGER NOT NULL,
	time_nsec INTEGER NOT NULL,
	value_json TEXT NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range b.Connections() {
		latching := 0
		if c.Latching {
			latching = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO connections (id, topic, type, md5sum, callerid, latching, message_count) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Topic, c.Type, c.MD5Sum, c.CallerID, latching, c.MessageCount,
		); err != nil {
			return err
		}
	}

	for _, topic := range b.Topics() {
		count := 0
		for _, c := range b.ConnectionsForTopic(topic) {
			count += c.MessageCount
		}
		if _, err := tx.Exec(`INSERT INTO topics (topic, message_count) VALUES (?, ?)`, topic, count); err != nil {
			return err
		}
	}

	msgs, err := b.Messages()
	if err != nil {
		return err
	}
	insertMsg, err := tx.Prepare(`INSERT INTO messages (connection_id, time_sec, time_nsec, value_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertMsg.Close()
	for _, m := range msgs {
		val, err := m.Value()
		if err != nil {
			return err
		}
		dict, err := val.Dict()
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(dict)
		if err != nil {
			return err
		}
		if _, err := insertMsg.Exec(m.Connection.ID, m.Time.Sec, m.Time.Nsec, string(encoded)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func init() {
	exportSQLiteCmd.Flags().StringVarP(&exportSQLiteOut, "out", "o", "", "path to the SQLite database file to create")
	exportCmd.AddCommand(exportSQLiteCmd)
	rootCmd.AddCommand(exportCmd)
}
