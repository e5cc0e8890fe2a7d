package lsp

import (
	"regexp"

	"go.lsp.dev/protocol"
)

var rootCompletions = &completionCollection{
	name: "root",
	match: pathMatcher{
		paths: paths(`/`, `/[^/<][^/]*`),
		depth: depth(0),
	},
	entries: []completionEntry{
		{
			label:         "services:",
			insertText:    "services:\n\t${1:name}:\n\t\timage: ${2:image}$0",
			documentation: "The services of the application. Each service runs one or more containers from the same image.",
			line:          lineRootKey,
		},
		{
			label:         "volumes:",
			insertText:    "volumes:\n\t${1:name}:$0",
			documentation: "Named volumes that services can mount.",
			line:          lineRootKey,
		},
		{
			label:         "networks:",
			insertText:    "networks:\n\t${1:name}:$0",
			documentation: "Networks that services can join.",
			line:          lineRootKey,
		},
		{
			label:         "configs:",
			insertText:    "configs:\n\t${1:name}:\n\t\tfile: ${2:./config}$0",
			documentation: "Configuration files granted to services.",
			line:          lineRootKey,
		},
		{
			label:         "secrets:",
			insertText:    "secrets:\n\t${1:name}:\n\t\tfile: ${2:./secret}$0",
			documentation: "Sensitive data granted to services.",
			line:          lineRootKey,
		},
		{
			label:         "name:",
			insertText:    "name: ${1:project}$0",
			documentation: "The project name. Defaults to the name of the directory holding the file.",
			line:          lineRootKey,
		},
		{
			label:         "include:",
			insertText:    "include:\n\t- ${1:./other/compose.yaml}$0",
			documentation: "Other compose files to merge into this application.",
			line:          lineRootKey,
			advanced:      true,
		},
		{
			label:         "version:",
			insertText:    "version: '${1:3.8}'$0",
			documentation: "Obsolete. Compose ignores the file format version.",
			line:          lineRootKey,
			advanced:      true,
		},
	},
}

var serviceCompletions = &completionCollection{
	name: "service",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/(<value>|[^/<][^/]*)`),
		depth: depth(2),
	},
	entries: []completionEntry{
		{
			label:         "build:",
			insertText:    "build:\n\tcontext: ${1:.}\n\tdockerfile: ${2:Dockerfile}$0",
			documentation: "Build the image of the service from a Dockerfile.",
			line:          lineKey,
		},
		{
			label:         "image:",
			insertText:    "image: ${1:name}$0",
			documentation: "The image to start the containers from.",
			line:          lineKey,
		},
		{
			label:         "command:",
			insertText:    "command: ${1:command}$0",
			documentation: "Overrides the default command of the image.",
			line:          lineKey,
		},
		{
			label:         "container_name:",
			insertText:    "container_name: ${1:name}$0",
			documentation: "A custom container name instead of the generated one.",
			line:          lineKey,
		},
		{
			label:         "depends_on:",
			insertText:    "depends_on:\n\t- ${1:service}$0",
			documentation: "Services that must start before this one.",
			line:          lineKey,
		},
		{
			label:         "entrypoint:",
			insertText:    "entrypoint: ${1:entrypoint}$0",
			documentation: "Overrides the default entrypoint of the image.",
			line:          lineKey,
		},
		{
			label:         "env_file:",
			insertText:    "env_file:\n\t- ${1:.env}$0",
			documentation: "Files to read environment variables from.",
			line:          lineKey,
		},
		{
			label:         "environment:",
			insertText:    "environment:\n\t- ${1:NAME}=${2:value}$0",
			documentation: "Environment variables set in the containers.",
			line:          lineKey,
		},
		{
			label:         "expose:",
			insertText:    "expose:\n\t- ${1:3000}$0",
			documentation: "Ports exposed to linked services but not published to the host.",
			line:          lineKey,
		},
		{
			label:         "healthcheck:",
			insertText:    "healthcheck:\n\ttest: [\"CMD\", \"${1:command}\"]\n\tinterval: ${2:30s}$0",
			documentation: "A check that tells whether the containers are healthy.",
			line:          lineKey,
		},
		{
			label:         "labels:",
			insertText:    "labels:\n\t${1:key}: ${2:value}$0",
			documentation: "Metadata added to the containers.",
			line:          lineKey,
		},
		{
			label:         "networks:",
			insertText:    "networks:\n\t- ${1:network}$0",
			documentation: "Networks the containers join.",
			line:          lineKey,
		},
		{
			label:         "ports:",
			insertText:    "ports:\n\t- $0",
			documentation: "Container ports published to the host.",
			line:          lineKey,
		},
		{
			label:         "restart:",
			insertText:    "restart: ${1|no,always,on-failure,unless-stopped|}$0",
			documentation: "The restart policy of the containers.",
			line:          lineKey,
		},
		{
			label:         "volumes:",
			insertText:    "volumes:\n\t- $0",
			documentation: "Host paths or named volumes mounted into the containers.",
			line:          lineKey,
		},
		{
			label:         "working_dir:",
			insertText:    "working_dir: ${1:/app}$0",
			documentation: "Overrides the working directory of the image.",
			line:          lineKey,
		},
		{
			label:         "secrets:",
			insertText:    "secrets:\n\t- ${1:secret}$0",
			documentation: "Secrets granted to the containers.",
			line:          lineKey,
		},
		{
			label:         "configs:",
			insertText:    "configs:\n\t- ${1:config}$0",
			documentation: "Configs granted to the containers.",
			line:          lineKey,
		},
		{
			label:         "profiles:",
			insertText:    "profiles:\n\t- ${1:debug}$0",
			documentation: "Profiles under which the service is enabled.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "user:",
			insertText:    "user: ${1:uid}$0",
			documentation: "Overrides the user the containers run as.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "deploy:",
			insertText:    "deploy:\n\treplicas: ${1:1}$0",
			documentation: "Deployment and lifecycle settings of the service.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "extends:",
			insertText:    "extends:\n\tservice: ${1:service}$0",
			documentation: "Shares the configuration of another service.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "logging:",
			insertText:    "logging:\n\tdriver: ${1:json-file}$0",
			documentation: "The logging configuration of the containers.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "cap_add:",
			insertText:    "cap_add:\n\t- ${1:NET_ADMIN}$0",
			documentation: "Additional container capabilities.",
			line:          lineKey,
			advanced:      true,
		},
		{
			label:         "extra_hosts:",
			insertText:    "extra_hosts:\n\t- \"${1:host}:${2:ip}\"$0",
			documentation: "Hostname mappings added to the containers.",
			line:          lineKey,
			advanced:      true,
		},
	},
}

var buildCompletions = &completionCollection{
	name: "build",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/build/(<value>|[^/<][^/]*)`),
		depth: depth(3),
	},
	entries: []completionEntry{
		{label: "context:", insertText: "context: ${1:.}$0", documentation: "The directory or URL sent to the builder.", line: lineKey},
		{label: "dockerfile:", insertText: "dockerfile: ${1:Dockerfile}$0", documentation: "The Dockerfile, relative to the context.", line: lineKey},
		{label: "args:", insertText: "args:\n\t${1:NAME}: ${2:value}$0", documentation: "Build arguments.", line: lineKey},
		{label: "target:", insertText: "target: ${1:stage}$0", documentation: "The stage of a multi-stage Dockerfile to build.", line: lineKey},
		{label: "labels:", insertText: "labels:\n\t${1:key}: ${2:value}$0", documentation: "Metadata added to the built image.", line: lineKey},
		{label: "cache_from:", insertText: "cache_from:\n\t- ${1:image}$0", documentation: "Images to use as cache sources.", line: lineKey, advanced: true},
		{label: "network:", insertText: "network: ${1:host}$0", documentation: "The network used during build steps.", line: lineKey, advanced: true},
		{label: "shm_size:", insertText: "shm_size: ${1:2gb}$0", documentation: "The size of /dev/shm during the build.", line: lineKey, advanced: true},
		{label: "ssh:", insertText: "ssh:\n\t- ${1:default}$0", documentation: "SSH agent sockets or keys made available to the build.", line: lineKey, advanced: true},
	},
}

var healthcheckCompletions = &completionCollection{
	name: "healthcheck",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/healthcheck/(<value>|[^/<][^/]*)`),
		depth: depth(3),
	},
	entries: []completionEntry{
		{label: "test:", insertText: "test: [\"CMD\", \"${1:command}\"]$0", documentation: "The command run to check health.", line: lineKey},
		{label: "interval:", insertText: "interval: ${1:30s}$0", documentation: "Time between checks.", line: lineKey},
		{label: "timeout:", insertText: "timeout: ${1:10s}$0", documentation: "Time after which a check counts as failed.", line: lineKey},
		{label: "retries:", insertText: "retries: ${1:3}$0", documentation: "Consecutive failures before the container is unhealthy.", line: lineKey},
		{label: "start_period:", insertText: "start_period: ${1:40s}$0", documentation: "Time the container gets to bootstrap before failures count.", line: lineKey},
		{label: "disable:", insertText: "disable: true$0", documentation: "Disables the healthcheck of the image.", line: lineKey},
		{label: "start_interval:", insertText: "start_interval: ${1:5s}$0", documentation: "Time between checks during the start period.", line: lineKey, advanced: true},
	},
}

var deployCompletions = &completionCollection{
	name: "deploy",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/deploy/(<value>|[^/<][^/]*)`),
		depth: depth(3),
	},
	entries: []completionEntry{
		{label: "mode:", insertText: "mode: ${1|replicated,global|}$0", documentation: "Replicated or global deployment.", line: lineKey, advanced: true},
		{label: "replicas:", insertText: "replicas: ${1:1}$0", documentation: "The number of containers to run.", line: lineKey, advanced: true},
		{label: "resources:", insertText: "resources:\n\tlimits:\n\t\tcpus: '${1:0.5}'\n\t\tmemory: ${2:512M}$0", documentation: "Resource limits and reservations.", line: lineKey, advanced: true},
		{label: "restart_policy:", insertText: "restart_policy:\n\tcondition: ${1|none,on-failure,any|}$0", documentation: "How containers are restarted when they exit.", line: lineKey, advanced: true},
		{label: "placement:", insertText: "placement:\n\tconstraints:\n\t\t- ${1:node.role == manager}$0", documentation: "Placement constraints and preferences.", line: lineKey, advanced: true},
		{label: "labels:", insertText: "labels:\n\t${1:key}: ${2:value}$0", documentation: "Metadata added to the service.", line: lineKey, advanced: true},
		{label: "update_config:", insertText: "update_config:\n\tparallelism: ${1:1}$0", documentation: "How the service is updated.", line: lineKey, advanced: true},
	},
}

var volumeCompletions = &completionCollection{
	name: "volume",
	match: pathMatcher{
		paths: paths(`/volumes/[^/]+/(<value>|[^/<][^/]*)`),
		depth: depth(2),
	},
	entries: []completionEntry{
		{label: "driver:", insertText: "driver: ${1:local}$0", documentation: "The volume driver.", line: lineKey},
		{label: "driver_opts:", insertText: "driver_opts:\n\t${1:type}: ${2:none}$0", documentation: "Options passed to the volume driver.", line: lineKey},
		{label: "external:", insertText: "external: true$0", documentation: "The volume is created outside of this application.", line: lineKey},
		{label: "labels:", insertText: "labels:\n\t${1:key}: ${2:value}$0", documentation: "Metadata added to the volume.", line: lineKey},
		{label: "name:", insertText: "name: ${1:name}$0", documentation: "A custom volume name.", line: lineKey},
	},
}

var networkCompletions = &completionCollection{
	name: "network",
	match: pathMatcher{
		paths: paths(`/networks/[^/]+/(<value>|[^/<][^/]*)`),
		depth: depth(2),
	},
	entries: []completionEntry{
		{label: "driver:", insertText: "driver: ${1|bridge,overlay,host,none|}$0", documentation: "The network driver.", line: lineKey},
		{label: "driver_opts:", insertText: "driver_opts:\n\t${1:key}: ${2:value}$0", documentation: "Options passed to the network driver.", line: lineKey},
		{label: "attachable:", insertText: "attachable: true$0", documentation: "Standalone containers may attach to the network.", line: lineKey},
		{label: "external:", insertText: "external: true$0", documentation: "The network is created outside of this application.", line: lineKey},
		{label: "internal:", insertText: "internal: true$0", documentation: "Isolates the network from outside traffic.", line: lineKey},
		{label: "ipam:", insertText: "ipam:\n\tconfig:\n\t\t- subnet: ${1:172.28.0.0/16}$0", documentation: "IP address management settings.", line: lineKey},
		{label: "labels:", insertText: "labels:\n\t${1:key}: ${2:value}$0", documentation: "Metadata added to the network.", line: lineKey},
		{label: "name:", insertText: "name: ${1:name}$0", documentation: "A custom network name.", line: lineKey},
		{label: "enable_ipv6:", insertText: "enable_ipv6: true$0", documentation: "Enables IPv6 on the network.", line: lineKey, advanced: true},
	},
}

var portCompletions = &completionCollection{
	name: "ports",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/ports/(<value>|<item>/<value>)`),
		depth: depth(3),
	},
	entries: concat(
		sequenceEntries("hostPort:containerPort", "${1:hostPort}:${2:containerPort}",
			"Publishes a container port on a host port.", false),
		sequenceEntries("hostPort:containerPort/protocol", "${1:hostPort}:${2:containerPort}/${3|tcp,udp|}",
			"Publishes a container port on a host port for one protocol.", false),
		sequenceEntries("hostIP:hostPort:containerPort", "${1:hostIP}:${2:hostPort}:${3:containerPort}",
			"Publishes a container port on a host port of one host interface.", false),
		sequenceEntries("containerPort", "${1:containerPort}",
			"Publishes a container port on a random host port.", false),
		[]completionEntry{{
			label:         "target, published, protocol",
			insertText:    "- target: ${1:containerPort}\n  published: ${2:hostPort}\n  protocol: ${3|tcp,udp|}$0",
			documentation: "Long syntax for a published port.",
			kind:          protocol.CompletionItemKindSnippet,
			line:          lineBare,
			advanced:      true,
		}},
	),
}

var serviceVolumeCompletions = &completionCollection{
	name: "serviceVolumes",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/volumes/(<value>|<item>/<value>)`),
		depth: depth(3),
	},
	entries: concat(
		sequenceEntries("source:target", "${1:source}:${2:target}",
			"Mounts a host path or named volume into the containers.", false),
		sequenceEntries("source:target:mode", "${1:source}:${2:target}:${3|ro,rw|}",
			"Mounts a host path or named volume with an access mode.", false),
		sequenceEntries("target", "${1:target}",
			"Mounts an anonymous volume.", true),
	),
}

// volumeModeCompletions offers access modes once source and target are typed.
var volumeModeCompletions = &completionCollection{
	name: "serviceVolumeModes",
	match: pathMatcher{
		paths: paths(`/services/[^/]+/volumes/<item>/.*`),
	},
	entries: modeEntries("ro", "rw", "z", "Z"),
}

var volumeModeLine = regexp.MustCompile(`^\s*-\s*["']?[^:"'\s]+:[^:"'\s]+:$`)

func modeEntries(modes ...string) []completionEntry {
	out := make([]completionEntry, len(modes))

	for i, m := range modes {
		out[i] = completionEntry{
			label:      m,
			insertText: m + "$0",
			kind:       protocol.CompletionItemKindEnumMember,
			line:       volumeModeLine,
		}
	}

	return out
}

func concat[T any](parts ...[]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
