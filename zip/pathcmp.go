package zip

// PathCompare compares two archive paths treating forward and back slashes as
// equal, optionally ignoring case. The result orders like strings.Compare.
func PathCompare(path1, path2 string, ignoreCase bool) int {
	i, j := 0, 0
	for i < len(path1) && j < len(path2) {
		c1, c2 := path1[i], path2[j]
		if (c1 == '\\' && c2 == '/') || (c1 == '/' && c2 == '\\') {
			i++
			j++
			continue
		}
		if ignoreCase {
			c1 = lowerByte(c1)
			c2 = lowerByte(c2)
		}
		if c1 != c2 {
			break
		}
		i++
		j++
	}
	var c1, c2 byte
	if i < len(path1) {
		c1 = path1[i]
	}
	if j < len(path2) {
		c2 = path2[j]
	}
	if ignoreCase {
		c1 = lowerByte(c1)
		c2 = lowerByte(c2)
	}
	return int(c1) - int(c2)
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
