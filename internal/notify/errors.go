package notify

import "errors"

// Ошибки публикации.
var (
	// ErrArchivalFailed — не удалось записать конверт в Metadata
	// Store. Публикация в брокер не выполнялась: сообщение без
	// durable-записи не должно попасть в очередь.
	ErrArchivalFailed = errors.New("message archival failed")

	// ErrPublishFailed — брокер отклонил публикацию. Архивная
	// копия сохранена, сообщение можно переотправить (Resend).
	ErrPublishFailed = errors.New("message publish failed")
)
