// Package orchestrator — клиент сервера оркестрации.
//
// Сервер выдаёт воркеру task и принимает от него результаты. Клиент
// покрывает все исходящие вызовы воркера:
//
//   - жизненный цикл task: create, start, complete
//   - результаты: output data, архив загрузок, архив trajectory
//   - inference: построение task по имени endpoint'а
//   - регистрация воркера по метаданным ECS
//   - human in loop: уведомление и опрос статуса
//
// Все запросы несут заголовок x-api-key. Ответ вне 2xx возвращается
// как *HTTPError с кодом и телом ответа.
package orchestrator
