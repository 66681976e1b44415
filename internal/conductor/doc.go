// Package conductor управляет выполнением executions.
//
// Conductor отвечает за:
//   - Получение триггерных событий из RabbitMQ и создание executions
//     для привязанных workflow
//   - Получение запросов на запуск (execution.requested)
//   - Подхват pending executions из БД через polling (fallback)
//   - Прогон каждого execution через engine в отдельной горутине
//   - Сохранение прогресса и истории после каждого этапа
//   - Публикацию терминальных событий
//
// Conductor — это "мозг" системы, который соединяет события с выполнением.
package conductor
