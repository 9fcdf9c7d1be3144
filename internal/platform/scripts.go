package platform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PowerShell fragments shared by the local and remote surfaces. Every
// fragment is self-guarding: creation commands check for the resource
// first so a re-run is a no-op instead of an "already exists" failure.

// psQuote escapes a value for a single-quoted PowerShell string literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func scriptQueryFeature(id string) string {
	return fmt.Sprintf(`$f = Get-WindowsFeature -Name %s -ErrorAction SilentlyContinue
if ($null -eq $f) { Write-Output 'NOTFOUND' } else { Write-Output $f.Installed }`, psQuote(id))
}

func scriptInstallFeature(id string, includeTools bool) string {
	tools := ""
	if includeTools {
		tools = " -IncludeManagementTools"
	}
	return fmt.Sprintf(`Install-WindowsFeature -Name %s%s | Out-Null`, psQuote(id), tools)
}

func scriptListAdapters() string {
	return `Get-NetAdapter | Select-Object Name,InterfaceIndex,Status | ConvertTo-Json -Compress`
}

func scriptGetAddress(ifaceID string) string {
	return fmt.Sprintf(`$a = Get-NetIPAddress -InterfaceIndex %s -AddressFamily IPv4 -ErrorAction SilentlyContinue | Select-Object -First 1
$r = Get-NetRoute -InterfaceIndex %s -DestinationPrefix '0.0.0.0/0' -ErrorAction SilentlyContinue | Select-Object -First 1
[pscustomobject]@{
    IPAddress    = $a.IPAddress
    PrefixLength = [int]$a.PrefixLength
    PrefixOrigin = [string]$a.PrefixOrigin
    Gateway      = $r.NextHop
} | ConvertTo-Json -Compress`, psQuote(ifaceID), psQuote(ifaceID))
}

func scriptRemoveAddress(ifaceID string) string {
	return fmt.Sprintf(`Remove-NetIPAddress -InterfaceIndex %s -AddressFamily IPv4 -Confirm:$false
Remove-NetRoute -InterfaceIndex %s -DestinationPrefix '0.0.0.0/0' -Confirm:$false -ErrorAction SilentlyContinue`,
		psQuote(ifaceID), psQuote(ifaceID))
}

func scriptAddAddress(ifaceID, ip string, prefix int, gateway string) string {
	gw := ""
	if gateway != "" {
		gw = " -DefaultGateway " + psQuote(gateway)
	}
	return fmt.Sprintf(`New-NetIPAddress -InterfaceIndex %s -IPAddress %s -PrefixLength %d%s | Out-Null`,
		psQuote(ifaceID), psQuote(ip), prefix, gw)
}

func scriptSetDNSServers(ifaceID string, servers []string) string {
	quoted := make([]string, len(servers))
	for i, s := range servers {
		quoted[i] = psQuote(s)
	}
	return fmt.Sprintf(`Set-DnsClientServerAddress -InterfaceIndex %s -ServerAddresses %s`,
		psQuote(ifaceID), strings.Join(quoted, ","))
}

func scriptAddPrimaryZone(name, file string) string {
	return fmt.Sprintf(`if (-not (Get-DnsServerZone -Name %s -ErrorAction SilentlyContinue)) {
    Add-DnsServerPrimaryZone -Name %s -ZoneFile %s
}`, psQuote(name), psQuote(name), psQuote(file))
}

func scriptAddForwarder(addr string) string {
	return fmt.Sprintf(`$fwd = (Get-DnsServerForwarder -ErrorAction SilentlyContinue).IPAddress.IPAddressToString
if ($fwd -notcontains %s) { Add-DnsServerForwarder -IPAddress %s }`, psQuote(addr), psQuote(addr))
}

func scriptAddScope(name, start, end, mask string) string {
	return fmt.Sprintf(`$net = [IPAddress](([IPAddress]%s).Address -band ([IPAddress]%s).Address)
if (-not (Get-DhcpServerv4Scope -ScopeId $net -ErrorAction SilentlyContinue)) {
    Add-DhcpServerv4Scope -Name %s -StartRange %s -EndRange %s -SubnetMask %s
}`, psQuote(start), psQuote(mask), psQuote(name), psQuote(start), psQuote(end), psQuote(mask))
}

func scriptGetScopeOptions(scopeID string) string {
	return fmt.Sprintf(`$opts = Get-DhcpServerv4OptionValue -ScopeId %s -ErrorAction SilentlyContinue
$pick = { param($id) [string](($opts | Where-Object { $_.OptionId -eq $id }).Value | Select-Object -First 1) }
[pscustomobject]@{
    Router    = & $pick 3
    DnsServer = & $pick 6
    DnsDomain = & $pick 15
} | ConvertTo-Json -Compress`, psQuote(scopeID))
}

func scriptSetScopeOptions(scopeID, router, dns, domain string) string {
	return fmt.Sprintf(`Set-DhcpServerv4OptionValue -ScopeId %s -Router %s -DnsServer %s -DnsDomain %s`,
		psQuote(scopeID), psQuote(router), psQuote(dns), psQuote(domain))
}

func scriptAuthorizeInDirectory() string {
	return `$fqdn = [System.Net.Dns]::GetHostByName($env:COMPUTERNAME).HostName
if (-not (Get-DhcpServerInDC -ErrorAction SilentlyContinue | Where-Object { $_.DnsName -eq $fqdn })) {
    Add-DhcpServerInDC
}`
}

func scriptGetWebsiteAutostart(site string) string {
	return fmt.Sprintf(`Import-Module WebAdministration
[string](Get-ItemProperty -Path ('IIS:\Sites\' + %s) -Name serverAutoStart).Value`, psQuote(site))
}

func scriptSetWebsiteAutostart(site string) string {
	return fmt.Sprintf(`Import-Module WebAdministration
Set-ItemProperty -Path ('IIS:\Sites\' + %s) -Name serverAutoStart -Value $true`, psQuote(site))
}

func scriptSetRegistryDWORD(path, name string, value uint32) string {
	return fmt.Sprintf(`Set-ItemProperty -Path %s -Name %s -Value %d -Type DWord`,
		psQuote(`HKLM:\`+path), psQuote(name), value)
}

func scriptGetRegistryDWORD(path, name string) string {
	return fmt.Sprintf(`(Get-ItemProperty -Path %s -Name %s).%s`,
		psQuote(`HKLM:\`+path), psQuote(name), name)
}

func scriptFirewallGroupEnabled(group string) string {
	return fmt.Sprintf(`$rules = @(Get-NetFirewallRule -DisplayGroup %s -ErrorAction SilentlyContinue)
$off = @($rules | Where-Object { $_.Enabled -ne 'True' })
Write-Output (($rules.Count -gt 0) -and ($off.Count -eq 0))`, psQuote(group))
}

func scriptEnableFirewallGroup(group string) string {
	return fmt.Sprintf(`Enable-NetFirewallRule -DisplayGroup %s`, psQuote(group))
}

// --- Output parsers ---

type adapterJSON struct {
	Name           string `json:"Name"`
	InterfaceIndex int    `json:"InterfaceIndex"`
	Status         string `json:"Status"`
}

// parseAdapters handles ConvertTo-Json output, which is a bare object for
// a single adapter and an array for several.
func parseAdapters(out string) ([]Adapter, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var raw []adapterJSON
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &raw); err != nil {
			return nil, fmt.Errorf("parse adapter list: %w", err)
		}
	} else {
		var one adapterJSON
		if err := json.Unmarshal([]byte(out), &one); err != nil {
			return nil, fmt.Errorf("parse adapter: %w", err)
		}
		raw = []adapterJSON{one}
	}

	adapters := make([]Adapter, 0, len(raw))
	for _, a := range raw {
		adapters = append(adapters, Adapter{
			Name:        a.Name,
			InterfaceID: strconv.Itoa(a.InterfaceIndex),
			Up:          strings.EqualFold(a.Status, "Up"),
		})
	}
	return adapters, nil
}

type addressJSON struct {
	IPAddress    string `json:"IPAddress"`
	PrefixLength int    `json:"PrefixLength"`
	PrefixOrigin string `json:"PrefixOrigin"`
	Gateway      string `json:"Gateway"`
}

func parseAddress(ifaceID, out string) (*AddressState, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("no address information for interface %s", ifaceID)
	}

	var raw addressJSON
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	if raw.IPAddress == "" {
		return nil, fmt.Errorf("interface %s has no IPv4 address", ifaceID)
	}

	return &AddressState{
		InterfaceID:  ifaceID,
		IPAddress:    raw.IPAddress,
		PrefixLength: raw.PrefixLength,
		Gateway:      raw.Gateway,
		Origin:       Origin(raw.PrefixOrigin),
	}, nil
}

// parseFeatureInstalled interprets the scriptQueryFeature output.
func parseFeatureInstalled(id, out string) (bool, error) {
	switch strings.TrimSpace(out) {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "NOTFOUND":
		return false, fmt.Errorf("%w: %s", ErrFeatureNotFound, id)
	default:
		return false, fmt.Errorf("unexpected feature query output for %s: %q", id, out)
	}
}

// parseBool interprets PowerShell's stringified boolean output.
func parseBool(out string) (bool, error) {
	switch strings.TrimSpace(out) {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected boolean output: %q", out)
	}
}

type scopeOptionsJSON struct {
	Router    string `json:"Router"`
	DnsServer string `json:"DnsServer"`
	DnsDomain string `json:"DnsDomain"`
}

// parseScopeOptions returns empty values for an absent scope so callers
// can treat "nothing configured" and "different values" alike.
func parseScopeOptions(out string) (string, string, string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", "", "", nil
	}
	var raw scopeOptionsJSON
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return "", "", "", fmt.Errorf("parse scope options: %w", err)
	}
	return raw.Router, raw.DnsServer, raw.DnsDomain, nil
}

func parseDWORD(out string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(out), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse registry value: %w", err)
	}
	return uint32(v), nil
}
