package prompt

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/config"
)

// GenericReference is used when no industry key matches.
const GenericReference = "top-tier clients"

// DefaultIndustries is the built-in client reference table. Order matters:
// the first key contained in the industry text wins.
var DefaultIndustries = []config.IndustryReference{
	{Key: "automation", Clients: []string{"Unbox Robotics", "Yantrana Systems", "Uno Minda", "Plexware Automation"}},
	{Key: "aerospace", Clients: []string{"Sagar Defence", "DRDO", "Ikran Aerospace", "EtherealX", "Manstu Aerospace", "TMPL"}},
	{Key: "industrial", Clients: []string{"Proarc", "Kirloskar Pneumatics", "Yazaki", "V-Tech Engineering", "Zimmer Group", "Warade Pactech"}},
	{Key: "automobile", Clients: []string{"Octarange Technology", "Hyrovert", "Tritium Motors", "Ground Mobile", "Navnit Motors", "Clean Electric"}},
}

// MatchIndustry returns the client list for the first key that occurs in
// the lowercased industry, or nil.
func MatchIndustry(refs []config.IndustryReference, industry string) []string {
	industry = strings.ToLower(industry)
	for _, ref := range refs {
		key := strings.ToLower(ref.Key)
		if key != "" && strings.Contains(industry, key) {
			return ref.Clients
		}
	}
	return nil
}

// ClientReferences renders the reference phrase for an industry.
func ClientReferences(refs []config.IndustryReference, industry string) string {
	clients := MatchIndustry(refs, industry)
	if len(clients) == 0 {
		return GenericReference
	}
	return strings.Join(clients, ", ")
}
