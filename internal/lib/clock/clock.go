// Package clock абстрагирует источник текущего времени.
//
// Вся логика жизненного цикла подписок (isActive, продление, свип)
// зависит от настенных часов, поэтому время передаётся как зависимость:
// в продакшене используется RealClock, в тестах — FakeClock с фиксированным моментом.
package clock

import "time"

// Clock возвращает текущее время. Все проверки дат в движке подписок
// обязаны брать время только отсюда.
type Clock interface {
	Now() time.Time
}

// RealClock возвращает системное время в UTC.
type RealClock struct{}

// Now возвращает time.Now().UTC().
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock отдаёт заранее заданный момент времени, используется в тестах.
type FakeClock struct {
	Current time.Time
}

// Now возвращает зафиксированное время.
func (f *FakeClock) Now() time.Time {
	return f.Current
}

// Advance сдвигает зафиксированное время вперёд.
func (f *FakeClock) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
