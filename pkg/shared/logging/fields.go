// Package logging provides a small structured-fields builder over
// logrus.Fields so call sites compose log context instead of hand-rolling
// map literals at every log statement.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable builder over logrus.Fields.
type Fields logrus.Fields

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

func (f Fields) Namespace(namespace string) Fields {
	if namespace != "" {
		f["namespace"] = namespace
	}
	return f
}

func (f Fields) ErrorClass(class string) Fields {
	f["error_class"] = class
	return f
}

func (f Fields) StrategyID(id string) Fields {
	f["strategy_id"] = id
	return f
}

func (f Fields) EpisodeID(id string) Fields {
	f["episode_id"] = id
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Count(name string, n int) Fields {
	f[name] = n
	return f
}

func (f Fields) Err(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Logrus converts the builder to logrus.Fields for use with a *logrus.Entry.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
