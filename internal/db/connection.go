package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hsm-gustavo/todo-go/internal/config"
)

// Tables holds the configured table names. They are validated identifiers
// (see config.Validate) and are interpolated into statements.
type Tables struct {
	Users string
	Tasks string
}

// Store is the handle handed to request handlers once the database and its
// tables are known to exist.
type Store struct {
	DB     *sql.DB
	Tables Tables
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Open connects to the server, creates the database and tables if they are
// absent and returns a ready Store. Every step is safe to repeat.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if err := ensureDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	conn, err := openPool(ctx, mysqlConfig(cfg, cfg.Name))
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{
		DB: conn,
		Tables: Tables{
			Users: cfg.UsersTable,
			Tasks: cfg.TasksTable,
		},
	}

	if err := EnsureSchema(ctx, store); err != nil {
		conn.Close()
		return nil, err
	}

	return store, nil
}

func ensureDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	conn, err := openPool(ctx, mysqlConfig(cfg, ""))
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Name)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Name, err)
	}
	return nil
}

func openPool(ctx context.Context, mcfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}

	conn := sql.OpenDB(connector)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", mcfg.Addr, err)
	}
	return conn, nil
}

// refer to https://github.com/go-sql-driver/mysql/?tab=readme-ov-file#dsn-data-source-name
func mysqlConfig(cfg config.DatabaseConfig, dbName string) *mysql.Config {
	mcfg := mysql.NewConfig()
	mcfg.User = cfg.User
	mcfg.Passwd = cfg.Password
	mcfg.Net = "tcp"
	mcfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mcfg.DBName = dbName
	mcfg.ParseTime = true
	// report matched rather than changed rows so a no-op UPDATE is not "not found"
	mcfg.ClientFoundRows = true
	mcfg.Loc = time.UTC
	mcfg.Timeout = cfg.ConnectTimeout
	mcfg.TLSConfig = tlsMode(cfg.TLS, cfg.TLSVerify)
	return mcfg
}

func tlsMode(enabled, verify bool) string {
	switch {
	case !enabled:
		return "false"
	case verify:
		return "true"
	default:
		return "skip-verify"
	}
}
