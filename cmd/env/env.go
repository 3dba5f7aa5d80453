package env

const (
	// Prefix is the prefix for all birrbot ENV variables
	Prefix = "BIRRBOT"

	// TelegramTokenSuffix is the ENV variable suffix
	// holding the Telegram bot API token
	TelegramTokenSuffix = "_TELEGRAM_TOKEN"
)
