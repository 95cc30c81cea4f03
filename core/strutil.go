package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// xtoa formats n as 0x-prefixed uppercase hex
func xtoa(n uint32) string {
	const digits = "0123456789ABCDEF"
	if n == 0 {
		return "0x0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = digits[n&0xF]
		n >>= 4
	}
	pos -= 2
	buf[pos], buf[pos+1] = '0', 'x'
	return string(buf[pos:])
}

// pad2 formats a 0-99 value with a leading zero
func pad2(n uint8) string {
	if n < 10 {
		return "0" + utoa(uint32(n))
	}
	return utoa(uint32(n))
}
