// Package onboarding реализует жизненный цикл клиента:
// регистрацию (очереди + запись + приветственное сообщение),
// завершение onboarding, деактивацию/реактивацию, изменение
// лимита и снятие с обслуживания.
//
// Это административная поверхность системы: операции вызываются
// напрямую (CLI или внешний HTTP-слой), отдельного протокола нет.
package onboarding
