package domain

import "time"

// Customer — простой агрегат клиента. Заказы ссылаются на клиента,
// но его жизненный цикл независим от заказов.
type Customer struct {
	ID        string
	FullName  string
	// Email уникален в пределах хранилища.
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address — адрес клиента. Клиент владеет своими адресами:
// удаление клиента удаляет и адреса.
type Address struct {
	ID         string
	CustomerID string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	// IsDefault — признак адреса по умолчанию. У клиента не может быть
	// двух адресов по умолчанию; это контролируется на уровне сервиса.
	IsDefault bool
}
