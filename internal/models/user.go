// Package models содержит доменные структуры движка подписок:
// пользователя со счётчиками использования, подписку с её инвариантами,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Роли пользователя. Role — денормализованный кеш ответа на вопрос
// "есть ли у пользователя активная подписка": pro выставляется при оплате,
// снимается свипером или лениво при проверке доступа.
const (
	RoleUser  = "user"
	RolePro   = "pro"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string     // Уникальный идентификатор пользователя
	Email        string     // Электронная почта
	Username     string     // Имя пользователя (уникальное)
	PasswordHash string     // Хэш пароля пользователя
	Role         string     // Роль пользователя: user, pro или admin
	UsageStats   UsageStats // Счётчики использования функций
	CreatedAt    time.Time  // Дата создания учётной записи
}

// UsageStats счётчики использования функций.
// Изменяются только движком подписок, атомарными инкрементами в хранилище.
type UsageStats struct {
	TotalScans     int        `json:"total_scans"`      // Всего сканирований за всё время
	ScansThisMonth int        `json:"scans_this_month"` // Сканирований в текущем календарном месяце
	LastScanDate   *time.Time `json:"last_scan_date"`   // Дата последнего сканирования
	ExportsCount   int        `json:"exports_count"`    // Количество экспортов данных
	APICallsCount  int        `json:"api_calls_count"`  // Количество вызовов API
}

// FreeMonthlyScanLimit лимит сканирований в месяц для пользователей без подписки.
const FreeMonthlyScanLimit = 5
