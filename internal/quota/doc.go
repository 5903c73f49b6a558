// Package quota реализует учёт суточной квоты отправки сообщений.
//
// Квота хранится в записи клиента в Metadata Store и сбрасывается
// ровно один раз в календарные сутки — при первой проверке в новый
// день. Допуск к отправке (проверка + инкремент) выполняется как
// одна атомарная операция: Tracker сериализует read-modify-write
// по каждому клиенту, поэтому конкурентные отправки не могут
// превысить лимит.
package quota
