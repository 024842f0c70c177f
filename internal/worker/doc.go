// Package worker выполняет task'и автоматизации браузера.
//
// # Обзор
//
// Процесс воркера (replay-worker serve) держит очередь task'ов и
// живую сессию браузера. Каждый task выполняется в отдельном дочернем
// процессе (replay-worker exec), чтобы зависший task не блокировал
// приём новых task'ов и проверки здоровья.
//
// # Ключевые компоненты
//
// ## Worker
//
// Явный контекст воркера: номер дочернего процесса, уникальный ARN,
// флаг выполнения и время старта текущего task. Run потребляет очередь
// одной горутиной, task'и выполняются строго по одному в порядке поступления.
//
//	w := worker.New(worker.Config{
//	    Runner:   worker.NewRunner(worker.RunnerConfig{Command: factory}),
//	    Sessions: worker.NewSessionManager(launcher, metrics, logger),
//	    Logger:   logger,
//	})
//	go w.Run(ctx)
//	_ = w.Enqueue(task)
//
// ## SessionManager
//
// Выделенный task (is_dedicated) переиспользует живой браузер, невыделенный
// получает свежий, который останавливается после task. Порт CDP —
// BrowserBasePort + ChildID.
//
// ## Runner
//
// Запускает дочерний процесс в собственной группе процессов, передаёт
// task JSON'ом на stdin и ждёт до TaskTimeout (600s). По таймауту группа
// убивается SIGKILL, код завершения -1.
//
// ## Executor
//
// Работает внутри дочернего процесса: создаёт Memory и лог task, запускает
// engine.Interpreter, снимает финальный скриншот и отчитывается серверу
// оркестрации (start, complete, output data, downloads, trajectory).
//
// # Здоровье
//
// Health возвращает unhealthy, если текущий task выполняется дольше
// UnhealthyAfter (15 минут).
//
// # Снимки системы
//
// SysInfoRecorder пишет память контейнера (cgroup) и хоста (gopsutil)
// до и после старта браузера, после task и после остановки браузера
// в system_info.jsonl.
package worker
