package tracker

// User-facing message constants for parse failures and usage hints.
const (
	waterUsage         = "Используй команду так:\n/log_water 300"
	waterAmountInvalid = "Количество воды должно быть положительным числом (в мл)"

	workoutUsage         = "Используй команду так:\n/log_workout бег 40"
	workoutFormatInvalid = "Введите ответ в формате '<тренировка> <время>':"

	foodUsage         = "Используй команду так:\n/log_food банан"
	foodNotFound      = "В нашей базе нет такого продукта"
	foodWeightInvalid = "Введите числовой ответ в граммах"
	foodNoCalories    = "Для этого продукта нет данных о калориях, запись не добавлена"

	profileMissing = "Данные не найдены. Используй /set_profile"
)
