// Package scheduler реализует фоновые периодические задачи.
//
// Две задачи по cron-расписанию:
//   - ночной сброс суточных счётчиков квоты всех клиентов
//     (страховка поверх ленивого rollover в quota.Tracker);
//   - утренняя публикация workflow-напоминания о платежах.
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:     st,
//	    Tracker:   tracker,
//	    Publisher: publisher, // опционально
//	    Logger:    logger,
//	})
//
//	if err := sched.Start(); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
// Scheduler не реализует leader election: предполагается один
// экземпляр courier-scheduler на инсталляцию.
package scheduler
