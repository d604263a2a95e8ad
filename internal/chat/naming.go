package chat

import (
	"strconv"
	"strings"
)

// NamingStrategy derives the overflow room for a full room. It returns false
// when no overflow name can be derived.
type NamingStrategy func(room string) (string, bool)

// NextNumberedRoom increments the trailing number of room, so "room-1"
// overflows into "room-2" and "room - 9" into "room - 10". When the name
// ends in other characters the last run of digits is used ("hall7b" gives
// "hall8b"). Names without digits have no overflow room.
func NextNumberedRoom(room string) (string, bool) {
	end := strings.LastIndexFunc(room, isDigit) + 1
	if end == 0 {
		return "", false
	}
	start := end
	for start > 0 && isDigit(rune(room[start-1])) {
		start--
	}

	n, err := strconv.ParseUint(room[start:end], 10, 64)
	if err != nil {
		return "", false
	}
	return room[:start] + strconv.FormatUint(n+1, 10) + room[end:], true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
