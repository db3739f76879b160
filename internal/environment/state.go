package environment

// StatusLevel is the severity of the step's current feedback.
type StatusLevel string

const (
	StatusInfo  StatusLevel = "info"
	StatusError StatusLevel = "error"
)

// Credentials are the RHN user name and password for the Red Hat registry.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Complete reports whether both credential fields are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// State holds the current selections of the environment step.
//
// State is a value: every mutating method works on a copy and the caller keeps
// the result. The catalog is shared between copies and never modified.
type State struct {
	catalog *Catalog

	sourceType    string
	targetVersion string
	clusterType   string
	osdType       string
	networkType   string
	osdMode       string
	installType   string
	flashUsage    string
	credentials   Credentials

	resolvedVersion string

	statusLevel   StatusLevel
	statusMessage string
	errorKind     ErrorKind
}

// NewState creates a state from caller-supplied defaults. Empty defaults fall
// back to DefaultSelections. A target version that is not listed for the
// source is replaced by the source's first version.
func NewState(catalog *Catalog, defaults Defaults) (State, error) {
	if catalog == nil {
		catalog = NewCatalog()
	}
	d := defaults.withFallbacks()

	s := State{catalog: catalog, statusLevel: StatusInfo}
	if err := s.setSource(d.SourceType); err != nil {
		return State{}, err
	}
	if d.TargetVersion != "" && catalog.Contains(s.sourceType, d.TargetVersion) {
		s.targetVersion = d.TargetVersion
	}

	simple := []struct {
		f Field
		v string
	}{
		{FieldClusterType, d.ClusterType},
		{FieldOSDType, d.OSDType},
		{FieldNetworkType, d.NetworkType},
		{FieldOSDMode, d.OSDMode},
		{FieldInstallType, d.InstallType},
		{FieldFlashUsage, d.FlashUsage},
	}
	for _, kv := range simple {
		if err := s.setSimple(kv.f, kv.v); err != nil {
			return State{}, err
		}
	}
	if s.sourceType == SourceISO {
		s.installType = InstallRPM
	}
	return s, nil
}

// Get returns the current value of a field, or "" for an unknown field.
func (s State) Get(f Field) string {
	switch f {
	case FieldSourceType:
		return s.sourceType
	case FieldTargetVersion:
		return s.targetVersion
	case FieldClusterType:
		return s.clusterType
	case FieldOSDType:
		return s.osdType
	case FieldNetworkType:
		return s.networkType
	case FieldOSDMode:
		return s.osdMode
	case FieldInstallType:
		return s.installType
	case FieldFlashUsage:
		return s.flashUsage
	case FieldUsername:
		return s.credentials.Username
	case FieldPassword:
		return s.credentials.Password
	default:
		return ""
	}
}

// Set updates a single field with no side effects, except that setting the
// source also resets the target version to the source's first version.
// Values outside a field's option set are rejected and s is returned unchanged.
func (s State) Set(f Field, value string) (State, error) {
	switch f {
	case FieldSourceType:
		if err := s.setSource(value); err != nil {
			return s, err
		}
	case FieldTargetVersion:
		if !s.catalog.Contains(s.sourceType, value) {
			return s, newInvalidField(f, "version %q is not available for source %q", value, s.sourceType)
		}
		s.targetVersion = value
	case FieldUsername:
		if len(value) > MaxUsernameLength {
			return s, newInvalidField(f, "user name is longer than %d characters", MaxUsernameLength)
		}
		s.credentials.Username = value
	case FieldPassword:
		s.credentials.Password = value
	default:
		if err := s.setSimple(f, value); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s *State) setSource(value string) error {
	if !contains(Sources, value) {
		return newInvalidField(FieldSourceType, "unknown installation source %q", value)
	}
	s.sourceType = value
	s.targetVersion = s.catalog.First(value)
	return nil
}

func (s *State) setSimple(f Field, value string) error {
	opt, ok := LookupSimpleField(f)
	if !ok {
		return newInvalidField(f, "unknown field %q", f)
	}
	if !opt.Allows(value) {
		return newInvalidField(f, "%q is not a valid %s", value, opt.Label)
	}
	switch f {
	case FieldClusterType:
		s.clusterType = value
	case FieldOSDType:
		s.osdType = value
	case FieldNetworkType:
		s.networkType = value
	case FieldOSDMode:
		s.osdMode = value
	case FieldInstallType:
		s.installType = value
	case FieldFlashUsage:
		s.flashUsage = value
	}
	return nil
}

// Catalog returns the version catalog the state validates against.
func (s State) Catalog() *Catalog {
	return s.catalog
}

// Versions returns the versions available for the current source.
func (s State) Versions() []string {
	return s.catalog.Versions(s.sourceType)
}

// CredentialsRequired reports whether the credential inputs are visible.
func (s State) CredentialsRequired() bool {
	return RequiresCredentials(s.sourceType)
}

// Credentials returns the RHN credentials.
func (s State) Credentials() Credentials {
	return s.credentials
}

// ResolvedVersion returns the derived Ceph version, set only on a successful advance.
func (s State) ResolvedVersion() string {
	return s.resolvedVersion
}

// Status returns the current status level and message.
func (s State) Status() (StatusLevel, string) {
	return s.statusLevel, s.statusMessage
}

// ErrorKind returns the kind of the current error, KindNone when status is info.
func (s State) ErrorKind() ErrorKind {
	return s.errorKind
}

// HasError reports whether the status blocks advancing.
func (s State) HasError() bool {
	return s.statusLevel == StatusError
}

func (s State) withError(kind ErrorKind, msg string) State {
	s.statusLevel = StatusError
	s.statusMessage = msg
	s.errorKind = kind
	return s
}

func (s State) clearError() State {
	s.statusLevel = StatusInfo
	s.statusMessage = ""
	s.errorKind = KindNone
	return s
}

func (s State) withCatalog(c *Catalog) State {
	s.catalog = c
	if !c.Contains(s.sourceType, s.targetVersion) {
		s.targetVersion = c.First(s.sourceType)
	}
	return s
}

func (s State) withResolvedVersion(v string) State {
	s.resolvedVersion = v
	return s
}

// Snapshot is the finalized configuration handed to the next wizard step.
type Snapshot struct {
	SourceType    string      `json:"sourceType" yaml:"source_type"`
	TargetVersion string      `json:"targetVersion" yaml:"target_version"`
	ClusterType   string      `json:"clusterType" yaml:"cluster_type"`
	OSDType       string      `json:"osdType" yaml:"osd_type"`
	NetworkType   string      `json:"networkType" yaml:"network_type"`
	OSDMode       string      `json:"osdMode" yaml:"osd_mode"`
	InstallType   string      `json:"installType" yaml:"install_type"`
	FlashUsage    string      `json:"flashUsage" yaml:"flash_usage"`
	Credentials   Credentials `json:"rhnCredentials" yaml:"rhn_credentials"`
	CephVersion   string      `json:"cephVersion" yaml:"ceph_version"`
	StatusLevel   StatusLevel `json:"msgLevel" yaml:"msg_level"`
	StatusMessage string      `json:"msgText" yaml:"msg_text"`
}

// Snapshot returns a copy of every field, including the resolved version.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		SourceType:    s.sourceType,
		TargetVersion: s.targetVersion,
		ClusterType:   s.clusterType,
		OSDType:       s.osdType,
		NetworkType:   s.networkType,
		OSDMode:       s.osdMode,
		InstallType:   s.installType,
		FlashUsage:    s.flashUsage,
		Credentials:   s.credentials,
		CephVersion:   s.resolvedVersion,
		StatusLevel:   s.statusLevel,
		StatusMessage: s.statusMessage,
	}
}

// Redacted returns a copy with the password masked, for display and logs.
func (snap Snapshot) Redacted() Snapshot {
	if snap.Credentials.Password != "" {
		snap.Credentials.Password = "********"
	}
	return snap
}
