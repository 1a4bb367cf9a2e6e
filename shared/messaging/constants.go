package messaging

// Имена очередей и DLX-инфраструктуры рендеринга.
// Параметры очереди задаёт консьюмер (render-worker); паблишер объявляет
// её с теми же аргументами, чтобы система не зависела от порядка запуска.
const (
	RenderTaskQueueName   = "render_tasks"
	RenderTaskDLXName     = "render_tasks_dlx"
	RenderTaskDLQName     = "render_tasks_dlq"
	RenderTaskDLQKey      = "dlq"
	RenderResultQueueName = "render_results"
)
