package email

import (
	"context"
	"fmt"
	"net/mail"
)

// Address адрес с отображаемым именем
type Address struct {
	Email string
	Name  string
}

// String форматирует адрес как "Name <email>"
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Message письмо для отправки
type Message struct {
	To      string
	From    Address
	ReplyTo *Address
	Subject string
	HTML    string
}

// Validate проверяет обязательные поля письма
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("recipient is required")
	}
	if m.From.Email == "" {
		return fmt.Errorf("sender is required")
	}
	if m.HTML == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// Sender отправляет письма
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
