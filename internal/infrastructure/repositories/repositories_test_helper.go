package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		wallet_address TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createCommunityTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE communities (
		id TEXT PRIMARY KEY,
		on_chain_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_by TEXT NOT NULL,
		config TEXT DEFAULT '{}',
		network TEXT NOT NULL,
		transaction_id TEXT,
		block_number INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createMembershipTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE memberships (
		id TEXT PRIMARY KEY,
		community_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'member',
		status TEXT NOT NULL DEFAULT 'active',
		joined_at DATETIME,
		network TEXT,
		transaction_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(community_id, user_id)
	);`)
}

func createQuestionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE voting_questions (
		id TEXT PRIMARY KEY,
		on_chain_id TEXT UNIQUE NOT NULL,
		community_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		options TEXT DEFAULT '[]',
		deadline DATETIME,
		created_by TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		network TEXT,
		transaction_id TEXT,
		block_number INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createVoteTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE votes (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		vote_data TEXT DEFAULT '{}',
		signature TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		network TEXT,
		transaction_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(question_id, user_id)
	);`)
}

func createAuditTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE audit_events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level TEXT NOT NULL,
		category TEXT NOT NULL,
		details TEXT DEFAULT '{}',
		created_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	createUserTable(t, db)
	createCommunityTable(t, db)
	createMembershipTable(t, db)
	createQuestionTable(t, db)
	createVoteTable(t, db)
	createAuditTable(t, db)
}
