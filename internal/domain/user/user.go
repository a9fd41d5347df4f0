// Package user holds the customer identity attached to orders. A user's ID
// doubles as the cart scope; there is no authentication in this service.
package user

// User identifies a customer.
type User struct {
	ID       string
	Email    string
	FullName string
}
