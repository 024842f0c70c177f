// Package scheduler содержит Janitor: периодическую очистку каталога сохранения.
//
// Каталоги task'ов (логи, загрузки, скриншоты) остаются на диске после
// отправки артефактов. Janitor по cron-расписанию удаляет те, что старше
// срока хранения.
package scheduler
