// Copyright 2018 Bull S.A.S. Atos Technologies - Bull, Rue Jean Jaures, B.P.68, 78340, Les Clayes-sous-Bois, France.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"reflect"
	"testing"
	"time"
)

func TestDynamicMap_Get(t *testing.T) {
	t.Parallel()
	type args struct {
		name string
	}
	tests := []struct {
		name   string
		inputs DynamicMap
		args   args
		want   interface{}
	}{
		{name: "TestString", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"s"}, want: "res"},
		{name: "TestInt", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"S1"}, want: 1},
		{name: "TestNil", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"S4"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inputs.Get(tt.args.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DynamicMap.Get() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicMap_GetString(t *testing.T) {
	t.Parallel()
	type args struct {
		name string
	}
	tests := []struct {
		name   string
		inputs DynamicMap
		args   args
		want   string
	}{
		{name: "TestString", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"s"}, want: "res"},
		{name: "TestInt", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"S1"}, want: "1"},
		{name: "TestNil", inputs: DynamicMap{"s": "res", "S1": 1}, args: args{"S4"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inputs.GetString(tt.args.name); got != tt.want {
				t.Errorf("DynamicMap.GetString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicMap_GetStringOrDefault(t *testing.T) {
	t.Parallel()
	type args struct {
		name       string
		defaultVal string
	}
	tests := []struct {
		name   string
		inputs DynamicMap
		args   args
		want   string
	}{
		{name: "TestString", inputs: DynamicMap{"s": "res"}, args: args{"s", "res2"}, want: "res"},
		{name: "TestNil", inputs: DynamicMap{"s": "res"}, args: args{"S4", "res2"}, want: "res2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inputs.GetStringOrDefault(tt.args.name, tt.args.defaultVal); got != tt.want {
				t.Errorf("DynamicMap.GetStringOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicMap_GetStringSlice(t *testing.T) {
	t.Parallel()
	type args struct {
		name string
	}
	tests := []struct {
		name   string
		inputs DynamicMap
		args   args
		want   []string
	}{
		{name: "TestSlice", inputs: DynamicMap{"s": []string{"a", "b"}}, args: args{"s"}, want: []string{"a", "b"}},
		{name: "TestComaString", inputs: DynamicMap{"s": "a,b"}, args: args{"s"}, want: []string{"a", "b"}},
		{name: "TestNil", inputs: DynamicMap{"s": "a,b"}, args: args{"S4"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inputs.GetStringSlice(tt.args.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DynamicMap.GetStringSlice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicMap_GetDuration(t *testing.T) {
	t.Parallel()
	dm := DynamicMap{"d": "10s"}
	if got := dm.GetDuration("d"); got != 10*time.Second {
		t.Errorf("DynamicMap.GetDuration() = %v, want %v", got, 10*time.Second)
	}
}
