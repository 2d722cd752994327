package utils

import "net"

// IsInternalIP 判断是否为内网IP
func IsInternalIP(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	// 回环地址
	if parsedIP.IsLoopback() {
		return true
	}

	// 私有地址
	if parsedIP.IsPrivate() {
		return true
	}

	return parsedIP.IsLinkLocalUnicast() || parsedIP.IsLinkLocalMulticast()
}
