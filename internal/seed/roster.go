package seed

import (
	"fmt"
	"os"
	"strings"

	"teamtrack/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

// Roster lists the teams and members to create.
//
//	teams:
//	  - name: Blue
//	    color: "#1e90ff"
//	    members:
//	      - id: kim01
//	        name: Kim
//	        cohort: "3"
//	        role: leader
type Roster struct {
	Teams []RosterTeam `yaml:"teams"`
	// Admins are created without a team.
	Admins []RosterMember `yaml:"admins"`
}

// RosterTeam is one team in a roster file.
type RosterTeam struct {
	Name    string         `yaml:"name"`
	Color   string         `yaml:"color"`
	Members []RosterMember `yaml:"members"`
}

// RosterMember is one user in a roster file. Role defaults to member.
type RosterMember struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Cohort string      `yaml:"cohort"`
	Role   models.Role `yaml:"role"`
}

// LoadRoster reads a YAML roster from path.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster decodes and checks a YAML roster.
func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	seen := make(map[string]bool)
	check := func(m *RosterMember) error {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return fmt.Errorf("roster member %q has no id", m.Name)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate roster id %q", m.ID)
		}
		seen[m.ID] = true
		if m.Role == "" {
			m.Role = models.RoleMember
		}
		if !m.Role.Valid() {
			return fmt.Errorf("roster member %q has invalid role %q", m.ID, m.Role)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		return nil
	}

	for ti := range r.Teams {
		if strings.TrimSpace(r.Teams[ti].Name) == "" {
			return nil, fmt.Errorf("roster team %d has no name", ti+1)
		}
		for mi := range r.Teams[ti].Members {
			if err := check(&r.Teams[ti].Members[mi]); err != nil {
				return nil, err
			}
		}
	}
	for i := range r.Admins {
		if err := check(&r.Admins[i]); err != nil {
			return nil, err
		}
		r.Admins[i].Role = models.RoleAdmin
	}
	return &r, nil
}

var teamColors = []string{"#1e90ff", "#e74c3c", "#2ecc71", "#f39c12", "#9b59b6", "#16a085", "#d35400", "#34495e"}

// GenerateRoster builds a random roster of teams with one leader each.
func GenerateRoster(faker *gofakeit.Faker, teams, membersPerTeam int) *Roster {
	r := &Roster{}
	used := make(map[string]bool)
	for t := 0; t < teams; t++ {
		team := RosterTeam{
			Name:  fmt.Sprintf("%s %s", faker.Color(), faker.Animal()),
			Color: teamColors[t%len(teamColors)],
		}
		for m := 0; m < membersPerTeam; m++ {
			role := models.RoleMember
			if m == 0 {
				role = models.RoleLeader
			}
			team.Members = append(team.Members, RosterMember{
				ID:     uniqueID(faker, used),
				Name:   faker.Name(),
				Cohort: fmt.Sprintf("%d", faker.Number(1, 5)),
				Role:   role,
			})
		}
		r.Teams = append(r.Teams, team)
	}
	return r
}

func uniqueID(faker *gofakeit.Faker, used map[string]bool) string {
	base := strings.ToLower(faker.LetterN(1) + faker.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if len(base) > 16 {
		base = base[:16]
	}
	if len(base) < 3 {
		base += "user"
	}
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s%d", base, n)
	}
	used[id] = true
	return id
}
