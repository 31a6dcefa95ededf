package catalog

// Developer is a registry entry for a known studio member whose public
// creations are scanned each cycle. Priority mirrors how actionable a
// discovery from this account usually is (1 = core team).
type Developer struct {
	ID          string `json:"id" yaml:"id"`
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Role        string `json:"role" yaml:"role"`
	Priority    int    `json:"priority" yaml:"priority"`
}

// defaultDevelopers is the verified developer registry for the tracked game.
// IDs verified against live platform data; do not invent entries.
var defaultDevelopers = []Developer{
	{ID: "19717956", Username: "BuildIntoGames", DisplayName: "Preston", Role: "Founder", Priority: 1},
	{ID: "1493409", Username: "CoderQwerty", DisplayName: "Isaac", Role: "Lead Developer", Priority: 1},
	{ID: "13365322", Username: "chickenputty", DisplayName: "Adam", Role: "Lead Developer", Priority: 1},
	{ID: "7707349", Username: "JamienChee", DisplayName: "Jamien", Role: "Lead Developer", Priority: 1},
	{ID: "1210210", Username: "ForeverDev", DisplayName: "David", Role: "Core Developer", Priority: 1},
	{ID: "31370263", Username: "ChickenEngineer", Role: "Developer", Priority: 2},
	{ID: "27902978", Username: "Scriptmatic", Role: "Programmer", Priority: 2},
	{ID: "27743246", Username: "Dukki", Role: "Developer", Priority: 2},
	{ID: "124094", Username: "Telanthric", Role: "Developer", Priority: 2},
	{ID: "18665593", Username: "Cutlass", Role: "Developer", Priority: 2},
	{ID: "116559", Username: "iWasAMellon", Role: "Developer", Priority: 2},
	{ID: "2033432", Username: "Merely", Role: "Developer", Priority: 2},
	{ID: "6523651", Username: "Berezaa", Role: "Developer", Priority: 2},
	{ID: "19339635", Username: "Foryxo", Role: "Artist", Priority: 3},
	{ID: "17122595", Username: "Criz", Role: "Developer", Priority: 3},
	{ID: "28100481", Username: "AbstractAlex", Role: "Developer", Priority: 3},
	{ID: "97658457", Username: "Jandel", Role: "Builder", Priority: 3},
	{ID: "47296135", Username: "XDHP", Role: "Developer", Priority: 3},
	{ID: "23558830", Username: "HashtagxK", Role: "Artist", Priority: 3},
}

// defaultGroups are the studio's public groups whose catalog uploads are scanned.
var defaultGroups = []Group{
	{ID: "2703304", Name: "BIG Games"},
	{ID: "3959677", Name: "BIG Games Pets"},
	{ID: "4981455", Name: "BIG Testing"},
}

// Group is a registry entry for a studio group account.
type Group struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
