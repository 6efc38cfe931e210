/*
Copyright 2025 The Kona contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package render renders challenge text templates.
package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	konav1alpha1 "github.com/kona-ctf/kona/pkg/apis/kona/v1alpha1"
)

// Context is the data templates are executed with.
type Context struct {
	Challenge         *konav1alpha1.ChallengeItem
	EndpointsRendered string
	Git               GitInfo
}

// Engine executes text/template templates with the sprig function library.
type Engine struct {
	funcs     template.FuncMap
	templates konav1alpha1.TemplatesConfig
	git       GitInfo
}

func NewEngine(templates konav1alpha1.TemplatesConfig, git GitInfo) *Engine {
	return &Engine{
		funcs:     sprig.TxtFuncMap(),
		templates: templates,
		git:       git,
	}
}

func (e *Engine) RenderString(name, tpl string, data interface{}) (string, error) {
	t, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Description renders the endpoints text of item and then its description.
func (e *Engine) Description(item *konav1alpha1.ChallengeItem) (string, error) {
	endpoints, err := e.RenderString("endpointsText", e.templates.EndpointsText, Context{Challenge: item, Git: e.git})
	if err != nil {
		return "", err
	}

	return e.RenderString("challengeDescription", e.templates.ChallengeDescription, Context{
		Challenge:         item,
		EndpointsRendered: endpoints,
		Git:               e.git,
	})
}

// Attribution renders the author attribution appended by platforms that do
// not have an author field.
func (e *Engine) Attribution(item *konav1alpha1.ChallengeItem) (string, error) {
	return e.RenderString("ctfdAttribution", e.templates.CTFdAttribution, Context{Challenge: item, Git: e.git})
}
