package models

// MenuService is one bookable service on a salon's menu.
type MenuService struct {
	Name    string  `json:"name"`
	Minutes int     `json:"time"`
	Price   float64 `json:"price"`
}

// Salon holds the details shown on a salon's booking page.
type Salon struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Menu []MenuService `json:"menu"`
}

// Lookup returns the menu entry with the given name.
func (s *Salon) Lookup(name string) (MenuService, bool) {
	if s == nil {
		return MenuService{}, false
	}
	for _, svc := range s.Menu {
		if svc.Name == name {
			return svc, true
		}
	}
	return MenuService{}, false
}

// Duration sums the minutes of the named services. Unknown names count as 0.
func (s *Salon) Duration(names []string) int {
	total := 0
	for _, n := range names {
		if svc, ok := s.Lookup(n); ok {
			total += svc.Minutes
		}
	}
	return total
}

// HistoryEntry is a ticket that has already been served.
type HistoryEntry struct {
	Token       int      `json:"token"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone,omitempty"`
	Services    []string `json:"services,omitempty"`
	JoinedAt    string   `json:"joined_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}
