// Package repo хранит журнал запусков task'ов в PostgreSQL (pgx).
//
// Журнал необязателен: воркер подключает его только при заданном DB_URL.
// Таблица создаётся EnsureSchema при старте.
package repo
