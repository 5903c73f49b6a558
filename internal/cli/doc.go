// Package cli реализует инструмент командной строки courier.
//
// # Обзор
//
// CLI — административная утилита: управление клиентами, квотами,
// отправка сообщений и инспекция очередей. В отличие от consumer
// и scheduler, CLI работает с хранилищем и брокером напрямую,
// без промежуточного API.
//
// # Ключевые компоненты
//
// ## Runtime
//
// Ленивое построение сервисов. Хранилище открывается при первом
// обращении, соединение с брокером — только для команд, которым
// нужен брокер (send, queue, topology, часть client). Команда
// `quota stats` работает и при недоступном брокере.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: courier client list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - client:   register, list, status, complete-onboarding,
//     deactivate, reactivate, set-limit, deregister
//   - quota:    stats, reset
//   - send:     client, workflow, bulk, resend
//   - queue:    info, purge
//   - topology: show, ensure
//
// Каждая группа создаётся через фабричную функцию (NewClientCmd
// и т.д.), принимающую runtimeFn и outputFn — замыкания для
// ленивого создания Runtime и Output после парсинга
// PersistentFlags.
package cli
