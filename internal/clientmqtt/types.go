package clientmqtt

type MQTTConf struct {
	ClientID    string // ClientID - уникальное имя клиента для брокеров.
	Schema      string // Schema - тип подключения.
	Host        string // Host - адрес MQTT сервера.
	Port        string // Port - порт MQTT сервера.
	User        string // User - логин для подключения к MQTT серверу.
	Password    string // Password - пароль для подключения к MQTT серверу.
	Qos         byte   // Qos - качество обслуживания.
	TopicPrefix string // TopicPrefix - корень дерева топиков.
}

type nameTopic string

// DMXCommand sets one channel of a universe.
type DMXCommand struct {
	Channel uint16 `json:"channel"` // Channel is the channel a command can talk to (1-512).
	Value   uint8  `json:"value"`   // Value is the value a DMX channel can represent (0-255).
}

// Payload is the body of a raw channel topic.
type Payload []DMXCommand

// Color is an rgb triple.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// CommandPayload is the body of a fixture set topic.
type CommandPayload struct {
	State      string   `json:"state,omitempty"` // State - "ON" или "OFF".
	Brightness *int     `json:"brightness,omitempty"`
	Color      *Color   `json:"color,omitempty"`
	WhiteValue *int     `json:"white_value,omitempty"`
	ColorTemp  *int     `json:"color_temp,omitempty"`
	Transition *float64 `json:"transition,omitempty"` // Transition - секунды.
}

// StatePayload is published retained on a fixture state topic.
type StatePayload struct {
	State      string  `json:"state"`
	Brightness int     `json:"brightness"`
	Color      *Color  `json:"color,omitempty"`
	WhiteValue *int    `json:"white_value,omitempty"`
	ColorTemp  *int    `json:"color_temp,omitempty"`
	Type       string  `json:"type"`
	Universe   string  `json:"dmx_universe"`
	Channels   []int   `json:"dmx_channels"`
	Values     []int   `json:"dmx_values"`
	Transition float64 `json:"transition"`
}

const (
	stateOn  = "ON"
	stateOff = "OFF"
)
