// Replay Worker — выполняет записанные браузерные automation'ы по заданию
// сервера оркестрации.
//
// Использование:
//
//	replay-worker [--config FILE] <command> [flags]
//
// Команды:
//
//	serve  HTTP-интерфейс воркера и обработка очереди task'ов
//	exec   выполнение одного task в дочернем процессе (task JSON на stdin)
//	run    локальный запуск записи из YAML-файла
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Replay/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		cancel()
		os.Exit(exitErr.Code)
	}
	cli.NewOutput(false).Error(err.Error())
	cancel()
	os.Exit(1)
}
