// Package naming derives AWS resource names for a LetsGo deployment.
package naming

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// DefaultPrefix is the prefix shared by every resource the tooling creates.
const DefaultPrefix = "letsgo"

// Tag keys attached to App Runner services.
const (
	DeploymentTagKey = "letsgo:deployment"
	ComponentTagKey  = "letsgo:component"
)

// Conventions produces resource names for one prefix.
type Conventions struct {
	Prefix string
}

// New returns conventions for prefix, falling back to DefaultPrefix.
func New(prefix string) Conventions {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Conventions{Prefix: prefix}
}

// QueueName returns the worker queue name.
func (c Conventions) QueueName(deployment string) string {
	return fmt.Sprintf("%s-%s", c.Prefix, deployment)
}

// DeadLetterQueueName returns the worker dead-letter queue name.
func (c Conventions) DeadLetterQueueName(deployment string) string {
	return c.QueueName(deployment) + "-dlq"
}

// ConfigPath returns the SSM parameter path holding deployment configuration.
func (c Conventions) ConfigPath(deployment string) string {
	return fmt.Sprintf("/%s/%s/", c.Prefix, deployment)
}

// Service returns the settings for an App Runner component such as "api".
func (c Conventions) Service(component string) ServiceSettings {
	return ServiceSettings{prefix: c.Prefix, component: component}
}

// Worker returns the settings for the worker function.
func (c Conventions) Worker() WorkerSettings {
	return WorkerSettings{prefix: c.Prefix}
}

// DataStore returns the settings for the DynamoDB table.
func (c Conventions) DataStore() DataStoreSettings {
	return DataStoreSettings{prefix: c.Prefix}
}

// ServiceSettings names the resources of one App Runner component.
type ServiceSettings struct {
	prefix    string
	component string
}

func (s ServiceSettings) Name() string { return s.component }

func (s ServiceSettings) RegistryName(deployment string) string {
	return fmt.Sprintf("%s-%s-%s", s.prefix, deployment, s.component)
}

// AutoScalingConfigName is limited to 32 characters by App Runner. The
// component suffix is always kept so web and api never share a name.
func (s ServiceSettings) AutoScalingConfigName(deployment string) string {
	return shorten(fmt.Sprintf("%s-%s", s.prefix, deployment), "-"+s.component, 32)
}

// RoleName is limited to 64 characters by IAM.
func (s ServiceSettings) RoleName(region, deployment string) string {
	return shorten(fmt.Sprintf("%s-%s-%s-%s", s.prefix, s.component, region, deployment), "", 64)
}

func (s ServiceSettings) PolicyName(region, deployment string) string {
	return s.RoleName(region, deployment) + "-policy"
}

// WorkerSettings names the resources of the worker.
type WorkerSettings struct {
	prefix string
}

func (s WorkerSettings) FunctionName(deployment string) string {
	return fmt.Sprintf("%s-worker-%s", s.prefix, deployment)
}

func (s WorkerSettings) RegistryName(deployment string) string {
	return fmt.Sprintf("%s-%s-worker", s.prefix, deployment)
}

func (s WorkerSettings) RoleName(region, deployment string) string {
	return shorten(fmt.Sprintf("%s-worker-%s-%s", s.prefix, region, deployment), "", 64)
}

func (s WorkerSettings) PolicyName(region, deployment string) string {
	return s.RoleName(region, deployment) + "-policy"
}

// DataStoreSettings names the DynamoDB table.
type DataStoreSettings struct {
	prefix string
}

func (s DataStoreSettings) TableName(deployment string) string {
	return fmt.Sprintf("%s-%s", s.prefix, deployment)
}

// ValidateName checks that a deployment name or prefix can be embedded in
// every resource name: 1-63 lowercase letters, digits and single hyphens,
// not starting or ending with a hyphen.
func ValidateName(kind, name string) error {
	if len(name) < 1 || len(name) > 63 {
		return fmt.Errorf("%s name must be between 1 and 63 characters", kind)
	}
	if name[0] == '-' || name[len(name)-1] == '-' {
		return fmt.Errorf("%s name cannot start or end with a hyphen", kind)
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return fmt.Errorf("%s name can only contain lowercase letters, digits, and hyphens", kind)
		}
	}
	if strings.Contains(name, "--") {
		return fmt.Errorf("%s name cannot contain consecutive hyphens", kind)
	}
	return nil
}

// shorten fits head+tail into limit characters. When it does not fit, head is
// cut and followed by a hash of the full name, so distinct long names stay
// distinct. tail is never cut.
func shorten(head, tail string, limit int) string {
	if len(head)+len(tail) <= limit {
		return head + tail
	}
	h := fnv.New32a()
	h.Write([]byte(head + tail))
	sum := fmt.Sprintf("%08x", h.Sum32())

	keep := limit - len(tail) - len(sum) - 1
	if keep > len(head) {
		keep = len(head)
	}
	return strings.TrimRight(head[:keep], "-") + "-" + sum + tail
}
