package bookings

type Status string

const (
	StatusBooked     Status = "Booked"
	StatusDispatched Status = "Dispatched"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusBooked:     {StatusDispatched: true, StatusCancelled: true},
	StatusDispatched: {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}
