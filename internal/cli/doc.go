// Package cli реализует команды replay-worker.
//
// # Команды
//
//   - serve — HTTP-интерфейс воркера, очередь task'ов, опционально
//     RabbitMQ, журнал в PostgreSQL и очистка каталога сохранения.
//     Каждый task выполняется командой exec в отдельном процессе.
//   - exec — дочерний процесс: читает task из stdin, подключается к
//     браузеру воркера по CDP, выполняет automation и отчитывается
//     перед сервером оркестрации. Код выхода 0 — успех.
//   - run — локальный запуск записи из YAML-файла без изоляции и без
//     сервера оркестрации.
//
// # Output
//
// Форматирование вывода run. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
package cli
