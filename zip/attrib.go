package zip

// AttribConvert maps external file attributes between host-system families.
// MSDOS and Windows share the FAT attribute bits; UNIX and Darwin share POSIX
// modes. Same-family conversion is identity; any other pairing is
// unsupported.
func AttribConvert(srcSys uint8, attrib uint32, targetSys uint8) (uint32, error) {
	switch srcSys {
	case HostSystemMSDOS, HostSystemWindowsNTFS:
		switch targetSys {
		case HostSystemMSDOS, HostSystemWindowsNTFS:
			return attrib, nil
		case HostSystemUnix, HostSystemDarwin:
			return AttribWin32ToPosix(attrib), nil
		}
	case HostSystemUnix, HostSystemDarwin:
		switch targetSys {
		case HostSystemUnix, HostSystemDarwin:
			return attrib, nil
		case HostSystemMSDOS, HostSystemWindowsNTFS:
			return AttribPosixToWin32(attrib), nil
		}
	}
	return 0, ErrSupport
}

// AttribPosixToWin32 converts a POSIX mode to Windows attribute bits.
func AttribPosixToWin32(posixAttrib uint32) uint32 {
	var win32Attrib uint32
	// No write bits but at least one read bit means read-only.
	if posixAttrib&0333 == 0 && posixAttrib&0444 != 0 {
		win32Attrib = fileAttributeReadonly
	}
	switch {
	case posixAttrib&posixModeDir == posixModeDir:
		win32Attrib |= fileAttributeDirectory
	case posixAttrib&posixModeFmt == posixModeLink:
		win32Attrib |= fileAttributeReparsePoint
	default:
		win32Attrib |= fileAttributeNormal
	}
	return win32Attrib
}

// AttribWin32ToPosix converts Windows attribute bits to a POSIX mode.
func AttribWin32ToPosix(win32Attrib uint32) uint32 {
	posixAttrib := uint32(0444)
	if win32Attrib&fileAttributeReadonly == 0 {
		posixAttrib |= 0222
	}
	switch {
	case win32Attrib&fileAttributeDirectory != 0:
		posixAttrib |= posixModeDir | 0111
	case win32Attrib&fileAttributeReparsePoint != 0:
		posixAttrib |= posixModeLink
	default:
		posixAttrib |= posixModeReg
	}
	return posixAttrib
}

// AttribIsDir reports whether the external attributes mark a directory,
// converting to POSIX first when the version-made-by host is a Windows
// family.
func AttribIsDir(attrib uint32, versionMadeBy uint16) bool {
	posixAttrib, err := AttribConvert(HostSystem(versionMadeBy), attrib, HostSystemUnix)
	if err != nil {
		return false
	}
	return posixAttrib&posixModeFmt == posixModeDir
}
